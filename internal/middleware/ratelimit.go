package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig is a fixed window limit: at most RequestsPerWindow
// requests per WindowDuration per key.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

func (c RateLimitConfig) Validate() error {
	if c.RequestsPerWindow <= 0 {
		return fmt.Errorf("RequestsPerWindow must be > 0 (got %d)", c.RequestsPerWindow)
	}
	if c.WindowDuration <= 0 {
		return fmt.Errorf("WindowDuration must be > 0 (got %s)", c.WindowDuration)
	}
	return nil
}

var (
	defaultGlobalLimit = RateLimitConfig{RequestsPerWindow: 100, WindowDuration: time.Minute}
	defaultSubmitLimit = RateLimitConfig{RequestsPerWindow: 30, WindowDuration: time.Minute}
	defaultRankLimit   = RateLimitConfig{RequestsPerWindow: 60, WindowDuration: time.Minute}
)

// DefaultGlobalLimit is the catch-all limit: 100 requests per minute.
func DefaultGlobalLimit() RateLimitConfig { return defaultGlobalLimit }

// DefaultSubmitLimit bounds feedback submissions to 30 per minute per user.
func DefaultSubmitLimit() RateLimitConfig { return defaultSubmitLimit }

// DefaultRankLimit bounds ranking calls to 60 per minute per client IP.
func DefaultRankLimit() RateLimitConfig { return defaultRankLimit }

// RateLimitStore tracks request counts per key. Implementations exist for
// in-process state and Redis.
type RateLimitStore interface {
	// Allow reports whether a request under key fits the limit, and when
	// blocked, how many seconds until the window resets.
	Allow(ctx context.Context, key string, config RateLimitConfig) (allowed bool, retryAfter int)
}

type bucket struct {
	count     int
	windowEnd time.Time
}

// InMemoryRateLimitStore is a fixed window counter held in a map. It is the
// single-process fallback when Redis is not configured.
type InMemoryRateLimitStore struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
}

func NewInMemoryRateLimitStore() *InMemoryRateLimitStore {
	return &InMemoryRateLimitStore{buckets: make(map[string]*bucket)}
}

func (s *InMemoryRateLimitStore) Allow(ctx context.Context, key string, config RateLimitConfig) (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	b, exists := s.buckets[key]
	if !exists || now.After(b.windowEnd) {
		s.buckets[key] = &bucket{
			count:     1,
			windowEnd: now.Add(config.WindowDuration),
		}
		return true, 0
	}

	if b.count < config.RequestsPerWindow {
		b.count++
		return true, 0
	}

	retryAfter := int(b.windowEnd.Sub(now).Seconds())
	if retryAfter <= 0 {
		retryAfter = 1
	}
	return false, retryAfter
}

// Cleanup drops expired buckets. Call it periodically; a few multiples of
// the longest configured window is a reasonable interval.
func (s *InMemoryRateLimitStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, b := range s.buckets {
		if now.After(b.windowEnd) {
			delete(s.buckets, key)
		}
	}
}

// KeyFunc derives the rate limit key from a request.
type KeyFunc func(r *http.Request) string

// IPKeyFunc keys by client IP, honoring X-Forwarded-For and X-Real-IP
// before falling back to RemoteAddr.
func IPKeyFunc() KeyFunc {
	return func(r *http.Request) string {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// First hop in the chain is the client.
			if idx := strings.Index(xff, ","); idx != -1 {
				return strings.TrimSpace(xff[:idx])
			}
			return strings.TrimSpace(xff)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			// RemoteAddr may already be bare.
			return r.RemoteAddr
		}
		return host
	}
}

// UserKeyFunc keys by the attributed user when a handler has set one,
// otherwise by IP.
func UserKeyFunc() KeyFunc {
	ipFunc := IPKeyFunc()
	return func(r *http.Request) string {
		if userID := GetUserID(r.Context()); userID != "" {
			return "user:" + userID
		}
		return "ip:" + ipFunc(r)
	}
}

// RateLimiter rejects over-limit requests with 429, setting Retry-After
// and X-RateLimit-Reset so well-behaved clients can back off.
func RateLimiter(store RateLimitStore, config RateLimitConfig, keyFunc KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter := store.Allow(r.Context(), keyFunc(r), config)
			if !allowed {
				r = r.WithContext(SetErrorCode(r.Context(), "rate_limit_exceeded"))

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				resetTime := time.Now().Add(time.Duration(retryAfter) * time.Second).Unix()
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime, 10))
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
