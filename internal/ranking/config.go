package ranking

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// Config holds the tunables for both ranking policies.
type Config struct {
	// ConfidenceK is the diminishing-returns constant: confidence =
	// n / (n + K). Larger K means more feedback is needed before trust
	// influences ranking at full strength.
	ConfidenceK float64 `json:"confidence_k"`

	// MultiplierBase and MultiplierSpan define the trust multiplier
	// range [base, base+span].
	MultiplierBase float64 `json:"multiplier_base"`
	MultiplierSpan float64 `json:"multiplier_span"`

	// MinFeedback gates the additive policy: below this total the base
	// score passes through unchanged.
	MinFeedback int `json:"min_feedback"`

	// MaxAdjustment bounds the additive nudge to [-max, +max].
	MaxAdjustment float64 `json:"max_adjustment"`
}

// CalibrationFile is the JSON structure of the calibration file.
type CalibrationFile struct {
	Version string `json:"version"`
	Ranking Config `json:"ranking"`
}

// DefaultConfig returns the default ranking tunables.
func DefaultConfig() *Config {
	return &Config{
		ConfidenceK:    10,
		MultiplierBase: 0.8,
		MultiplierSpan: 0.4,
		MinFeedback:    3,
		MaxAdjustment:  0.3,
	}
}

// LoadCalibration loads ranking tunables from a JSON calibration file.
// Partial configurations merge over the defaults. On any error the
// defaults are returned alongside the error so callers can degrade
// gracefully.
func LoadCalibration(filePath string) (*Config, error) {
	if filePath == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read ranking calibration, using defaults",
			"path", filePath,
			"error", err)
		return DefaultConfig(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var file CalibrationFile
	if err := json.Unmarshal(data, &file); err != nil {
		slog.Warn("failed to parse ranking calibration, using defaults",
			"path", filePath,
			"error", err)
		return DefaultConfig(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	merged := MergeCalibration(DefaultConfig(), &file.Ranking)
	slog.Info("loaded ranking calibration", "path", filePath)
	return merged, nil
}

// MergeCalibration merges override values over base. Only non-zero
// override fields are applied, allowing partial calibration files.
func MergeCalibration(base *Config, override *Config) *Config {
	if base == nil {
		return DefaultConfig()
	}
	if override == nil {
		result := *base
		return &result
	}

	result := *base
	if override.ConfidenceK != 0 {
		result.ConfidenceK = override.ConfidenceK
	}
	if override.MultiplierBase != 0 {
		result.MultiplierBase = override.MultiplierBase
	}
	if override.MultiplierSpan != 0 {
		result.MultiplierSpan = override.MultiplierSpan
	}
	if override.MinFeedback != 0 {
		result.MinFeedback = override.MinFeedback
	}
	if override.MaxAdjustment != 0 {
		result.MaxAdjustment = override.MaxAdjustment
	}
	return &result
}
