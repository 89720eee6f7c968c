// Package feedback provides the normalized feedback record model and
// storage contracts for the trust and ranking engine.
package feedback

import (
	"errors"
	"strconv"
	"time"
)

// Rating bounds accepted at the submission boundary.
const (
	MinRating = 1
	MaxRating = 5
)

// Validation errors for feedback submission.
var (
	ErrInvalidRating   = errors.New("invalid rating: must be an integer between 1 and 5")
	ErrInvalidCategory = errors.New("invalid category: must be non-empty and at most 64 characters")
)

// MaxCategoryLength is the longest category name accepted at the boundary.
const MaxCategoryLength = 64

// Record is the normalized form of a single user's feedback for an entity
// (trip, destination or category key). At most one record exists per
// (UserID, EntityID) pair; writes go through upsert semantics.
//
// Rating 0 means the stored value could not be normalized to a numeric
// rating. Such records are skipped by the scoring engines and surfaced as
// corruption findings by the validator.
type Record struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	EntityID   string         `json:"entity_id"`
	Rating     int            `json:"rating"`
	Categories map[string]int `json:"categories,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// HasRating reports whether the record carries an extractable numeric
// rating in the valid range.
func (r *Record) HasRating() bool {
	return r.Rating >= MinRating && r.Rating <= MaxRating
}

// DaysOld returns the age of the record in fractional days relative to now.
func (r *Record) DaysOld(now time.Time) float64 {
	age := now.Sub(r.CreatedAt)
	if age < 0 {
		return 0
	}
	return age.Hours() / 24.0
}

// ValidateRating checks a rating value at the submission boundary.
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return ErrInvalidRating
	}
	return nil
}

// ValidateCategory checks a category name at the submission boundary.
// An empty category is valid only when optional; callers pass the
// category through this check only when one was supplied.
func ValidateCategory(category string) error {
	if category == "" || len(category) > MaxCategoryLength {
		return ErrInvalidCategory
	}
	return nil
}

// NormalizeRating collapses the dynamic payload shapes historically
// accepted for a rating (bare number, numeric string, or an object with a
// "rating" field) into a plain int. Returns the rating and true when a
// numeric value could be extracted, or 0 and false otherwise.
//
// Normalization happens at the submission decode boundary so the engine
// only ever sees a plain integer rating.
func NormalizeRating(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case string:
		n, err := strconv.Atoi(val)
		if err != nil {
			return 0, false
		}
		return n, true
	case map[string]any:
		inner, ok := val["rating"]
		if !ok {
			return 0, false
		}
		return NormalizeRating(inner)
	default:
		return 0, false
	}
}
