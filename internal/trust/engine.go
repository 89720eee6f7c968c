package trust

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/feedback"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/tracing"
)

// Engine recalculates and persists per-user trust signals. Recalculation
// runs synchronously on the feedback submission path because ranking reads
// the signal immediately afterwards.
type Engine struct {
	feedback feedback.Store
	store    Store
	logger   *slog.Logger
	metrics  *Metrics
}

// NewEngine creates a trust engine. Logger and metrics may be nil.
func NewEngine(feedbackStore feedback.Store, trustStore Store, logger *slog.Logger, metrics *Metrics) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		feedback: feedbackStore,
		store:    trustStore,
		logger:   logger,
		metrics:  metrics,
	}
}

// Recalculate loads the user's full feedback history, computes the decayed
// Bayesian trust score, and upserts the signal. With no feedback the
// neutral prior 0.5 is stored.
func (e *Engine) Recalculate(ctx context.Context, userID string) (*Signal, error) {
	ctx, endSpan := tracing.StartSpan(ctx, "trust.recalculate")
	var err error
	defer func() { endSpan(err) }()

	start := time.Now()

	records, err := e.feedback.ListByUser(ctx, userID)
	if err != nil {
		if e.metrics != nil {
			e.metrics.IncRecalcErrors()
		}
		return nil, fmt.Errorf("failed to load feedback for trust recalculation: %w", err)
	}

	score := ComputeScore(records, time.Now())

	sig, err := e.store.Upsert(ctx, userID, score)
	if err != nil {
		if e.metrics != nil {
			e.metrics.IncRecalcErrors()
		}
		return nil, fmt.Errorf("failed to store trust signal: %w", err)
	}

	if e.metrics != nil {
		e.metrics.IncRecalcTotal()
		e.metrics.ObserveRecalcDuration(time.Since(start).Seconds())
	}

	e.logger.Debug("trust score recalculated",
		slog.String("user_id", userID),
		slog.Float64("score", score),
		slog.Int("feedback_count", len(records)),
		slog.Int64("version", sig.Version))

	return sig, nil
}

// ScoreOrNeutral returns the stored trust score for a user, or the neutral
// prior when no signal exists yet.
func (e *Engine) ScoreOrNeutral(ctx context.Context, userID string) (float64, error) {
	sig, err := e.store.Get(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load trust signal: %w", err)
	}
	if sig == nil {
		return NeutralScore, nil
	}
	return sig.Score, nil
}
