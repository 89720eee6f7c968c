// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database
	DatabaseURL string `koanf:"database_url"`

	// Redis (aggregate cache). Optional; the server falls back to an
	// in-process cache when no address is configured.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`

	// Ranking calibration file (JSON). Optional; defaults apply when unset.
	CalibrationPath string `koanf:"calibration_path"`

	// AuditInterval is how often the background aggregation audit runs.
	AuditInterval time.Duration `koanf:"audit_interval"`

	// Tracing
	TracingEnabled  bool   `koanf:"tracing_enabled"`
	TracingExporter string `koanf:"tracing_exporter"`
	TracingEndpoint string `koanf:"tracing_endpoint"`

	// Feature Flags
	RankTrustEnabled bool `koanf:"rank_trust_enabled"` // Enable the trust-weighted ranking policy

	// CORS settings. Empty means cross-origin requests are not served.
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrInvalidPort        = errors.New("PORT must be a valid integer")
	ErrInvalidInterval    = errors.New("AUDIT_INTERVAL must be a valid duration")
)

// Default values for non-secret configuration.
const (
	DefaultPort             = 8080
	DefaultEnv              = "development"
	DefaultAuditInterval    = 10 * time.Minute
	DefaultRankTrustEnabled = true
	DefaultTracingExporter  = "otlp-http"
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	// Parse port from env, collecting error if invalid
	// Try ROAM_PORT first, then PORT for backward compatibility
	port, portErr := getEnvIntOrDefaultMulti([]string{"ROAM_PORT", "PORT"}, k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	auditInterval, intervalErr := getEnvDurationOrDefault("AUDIT_INTERVAL", k.Duration("audit_interval"), DefaultAuditInterval)
	if intervalErr != nil {
		loadErrs = append(loadErrs, intervalErr)
	}

	// Parse trust ranking feature flag from env with default
	rankTrustEnabled := DefaultRankTrustEnabled
	if k.Exists("rank_trust_enabled") {
		rankTrustEnabled = k.Bool("rank_trust_enabled")
	}
	if val := os.Getenv("RANK_TRUST_ENABLED"); val != "" {
		// Env var takes precedence over file config
		rankTrustEnabled = parseBool(val, rankTrustEnabled)
	}

	tracingEnabled := k.Bool("tracing_enabled")
	if val := os.Getenv("TRACING_ENABLED"); val != "" {
		tracingEnabled = parseBool(val, tracingEnabled)
	}

	// Build config struct, with env vars taking precedence over file values
	cfg := &Config{
		Port:             port,
		Env:              getEnvOrDefaultMulti([]string{"ROAM_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:      getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisAddr:        getEnvOrKoanf("REDIS_ADDR", k, "redis_addr"),
		RedisPassword:    getEnvOrKoanf("REDIS_PASSWORD", k, "redis_password"),
		CalibrationPath:  getEnvOrKoanf("CALIBRATION_PATH", k, "calibration_path"),
		AuditInterval:    auditInterval,
		TracingEnabled:   tracingEnabled,
		TracingExporter:  getEnvOrDefault("TRACING_EXPORTER", k.String("tracing_exporter"), DefaultTracingExporter),
		TracingEndpoint:  getEnvOrKoanf("TRACING_ENDPOINT", k, "tracing_endpoint"),
		RankTrustEnabled: rankTrustEnabled,
		AllowedOrigins:   splitOrigins(getEnvOrDefault("ALLOWED_ORIGINS", strings.Join(k.Strings("allowed_origins"), ","), "")),
	}

	// Validate and collect errors
	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// splitOrigins parses a comma-separated origin list, dropping empty entries.
func splitOrigins(val string) []string {
	var origins []string
	for _, o := range strings.Split(val, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// parseBool interprets common boolean spellings, keeping the fallback
// for anything unrecognized.
func parseBool(val string, fallback bool) bool {
	switch strings.ToLower(val) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return fallback
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
// Returns an error if any environment variable is set but cannot be parsed as an integer.
// Note: A port value of 0 from a YAML file will fall back to the default; port 0 is not supported in YAML files.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvDurationOrDefault returns the environment variable as a duration if set,
// otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as a duration.
func getEnvDurationOrDefault(envKey string, koanfVal time.Duration, defaultVal time.Duration) (time.Duration, error) {
	if val := os.Getenv(envKey); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid duration: %w", envKey, ErrInvalidInterval)
		}
		return d, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":               fmt.Sprintf("%d", c.Port),
		"env":                c.Env,
		"database_url":       maskDatabaseURL(c.DatabaseURL),
		"redis_addr":         c.RedisAddr,
		"redis_password":     maskSecret(c.RedisPassword),
		"calibration_path":   c.CalibrationPath,
		"audit_interval":     c.AuditInterval.String(),
		"tracing_enabled":    fmt.Sprintf("%t", c.TracingEnabled),
		"tracing_exporter":   c.TracingExporter,
		"tracing_endpoint":   c.TracingEndpoint,
		"rank_trust_enabled": fmt.Sprintf("%t", c.RankTrustEnabled),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a database URL.
// Supports both postgres:// and postgresql:// schemes.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	// Look for password pattern: user:password@host
	// Simple approach: find :// and then mask between : and @
	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	// Reconstruct URL with masked password
	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
