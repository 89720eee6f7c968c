// Package affinity learns bounded per-(user, category) affinity weights
// from feedback, one small step at a time.
package affinity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/tracing"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/trust"
)

// Learner constants.
const (
	// NeutralWeight is the starting weight for a fresh (user, category) pair.
	NeutralWeight = 1.0

	// MinWeight and MaxWeight bound the learned weight. The weight is a
	// multiplier, so it is never zero and never unbounded.
	MinWeight = 0.5
	MaxWeight = 2.0

	// WeightStep is the adjustment applied per qualifying rating.
	WeightStep = 0.1

	// MinThreshold is the cold-start guard: while the feedback count for
	// a pair is at or below this value, ratings only increment the count
	// and never move the weight.
	MinThreshold = 3
)

// Learner applies incremental weight updates for (user, category) pairs.
type Learner struct {
	store  Store
	logger *slog.Logger
}

// NewLearner creates a category weight learner.
func NewLearner(store Store, logger *slog.Logger) *Learner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Learner{store: store, logger: logger}
}

// Update applies one rating to the (userID, category) weight.
//
// First feedback for a pair creates the row at the neutral weight with
// count 1 and makes no adjustment. While count <= MinThreshold only the
// count moves. Past the threshold, ratings >= 4 add WeightStep, ratings
// <= 2 subtract it, and rating 3 leaves the weight unchanged. The result
// is clamped to [MinWeight, MaxWeight].
func (l *Learner) Update(ctx context.Context, userID, category string, rating int) (*CategoryWeight, error) {
	ctx, endSpan := tracing.StartSpan(ctx, "affinity.update")
	var err error
	defer func() { endSpan(err) }()

	existing, err := l.store.Get(ctx, userID, category)
	if err != nil {
		return nil, fmt.Errorf("failed to load category weight: %w", err)
	}

	if existing == nil {
		cw, createErr := l.store.Upsert(ctx, userID, category, NeutralWeight, 1)
		if createErr != nil {
			err = fmt.Errorf("failed to create category weight: %w", createErr)
			return nil, err
		}
		l.logger.Debug("category weight created",
			slog.String("user_id", userID),
			slog.String("category", category))
		return cw, nil
	}

	newCount := existing.FeedbackCount + 1
	newWeight := existing.Weight

	if newCount > MinThreshold {
		switch {
		case rating >= trust.PositiveRating:
			newWeight += WeightStep
		case rating <= trust.NegativeRating:
			newWeight -= WeightStep
		}
		newWeight = trust.Clamp(newWeight, MinWeight, MaxWeight)
	}

	cw, upsertErr := l.store.Upsert(ctx, userID, category, newWeight, newCount)
	if upsertErr != nil {
		err = fmt.Errorf("failed to store category weight: %w", upsertErr)
		return nil, err
	}

	l.logger.Debug("category weight updated",
		slog.String("user_id", userID),
		slog.String("category", category),
		slog.Float64("weight", cw.Weight),
		slog.Int("feedback_count", cw.FeedbackCount))

	return cw, nil
}

// WeightOrNeutral returns the stored weight for (userID, category), or the
// neutral weight when no row exists yet.
func (l *Learner) WeightOrNeutral(ctx context.Context, userID, category string) (float64, error) {
	cw, err := l.store.Get(ctx, userID, category)
	if err != nil {
		return 0, fmt.Errorf("failed to load category weight: %w", err)
	}
	if cw == nil {
		return NeutralWeight, nil
	}
	return cw.Weight, nil
}
