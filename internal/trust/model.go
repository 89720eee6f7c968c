// Package trust computes per-user trust scores from historical feedback,
// decayed by recency and smoothed with a Bayesian prior.
package trust

import (
	"math"
	"time"

	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/feedback"
)

// Scoring constants.
const (
	// DecayLambda is the exponential decay rate per day of feedback age.
	DecayLambda = 0.02

	// Prior is the pseudo-count added to both the positive and negative
	// sums so sparse histories cannot produce extreme scores.
	Prior = 2.0

	// NeutralScore is the trust score assigned to users with no feedback.
	NeutralScore = 0.5

	// PositiveRating is the lowest rating counted as a positive signal.
	PositiveRating = 4

	// NegativeRating is the highest rating counted as a negative signal.
	// Rating 3 is neutral and contributes no trust signal either way.
	NegativeRating = 2
)

// Signal is the stored trust score for a user. One row per user, created
// lazily on first feedback, never deleted. Version increments on every
// upsert so concurrent writers are observable.
type Signal struct {
	UserID    string    `json:"user_id"`
	Score     float64   `json:"score"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DecayWeight returns the contribution weight of feedback aged daysOld
// days: exp(-lambda * daysOld). Older feedback contributes exponentially
// less.
func DecayWeight(daysOld float64) float64 {
	return math.Exp(-DecayLambda * daysOld)
}

// ComputeScore calculates the trust score for a set of feedback records
// using the formula:
//
//	score = (weightedPositive + Prior) / (weightedPositive + weightedNegative + 2*Prior)
//
// where each record's contribution is decayed by its age relative to now.
// Ratings >= 4 count positive, ratings <= 2 count negative, rating 3 is
// ignored. Records without an extractable rating are skipped. With no
// records the neutral prior 0.5 is returned. The result is always clamped
// to [0, 1].
func ComputeScore(records []feedback.Record, now time.Time) float64 {
	if len(records) == 0 {
		return NeutralScore
	}

	var weightedPositive, weightedNegative float64
	for _, rec := range records {
		if !rec.HasRating() {
			continue
		}
		weight := DecayWeight(rec.DaysOld(now))
		switch {
		case rec.Rating >= PositiveRating:
			weightedPositive += weight
		case rec.Rating <= NegativeRating:
			weightedNegative += weight
		}
	}

	score := (weightedPositive + Prior) / (weightedPositive + weightedNegative + 2*Prior)
	return Clamp(score, 0, 1)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
