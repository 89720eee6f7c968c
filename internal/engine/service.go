// Package engine coordinates the feedback submission pipeline: validate,
// persist, recalculate trust, adjust category weights, and invalidate
// cached aggregates, in that order.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/affinity"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/aggregate"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/feedback"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/tracing"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/trust"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/validate"
)

// Submission is one user's feedback for an entity as received at the
// API boundary. Categories maps category names to the per-category
// rating; a zero value falls back to the overall rating.
type Submission struct {
	UserID     string         `json:"user_id"`
	EntityID   string         `json:"entity_id"`
	Rating     int            `json:"rating"`
	Categories map[string]int `json:"categories,omitempty"`
}

// Result reports the state produced by a processed submission.
type Result struct {
	Record     *feedback.Record `json:"record"`
	TrustScore float64          `json:"trust_score"`
}

// Service runs the feedback pipeline. Submissions for the same user are
// serialized so concurrent weight updates cannot lose adjustments.
type Service struct {
	feedback   feedback.Store
	trust      *trust.Engine
	weights    *affinity.Learner
	aggregator *aggregate.Aggregator
	locks      *keyedMutex
	logger     *slog.Logger
	metrics    *Metrics
}

// NewService wires the feedback pipeline. aggregator and metrics may be
// nil; invalidation and instrumentation are skipped when absent.
func NewService(
	feedbackStore feedback.Store,
	trustEngine *trust.Engine,
	weights *affinity.Learner,
	aggregator *aggregate.Aggregator,
	logger *slog.Logger,
	metrics *Metrics,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		feedback:   feedbackStore,
		trust:      trustEngine,
		weights:    weights,
		aggregator: aggregator,
		locks:      newKeyedMutex(),
		logger:     logger,
		metrics:    metrics,
	}
}

// validate rejects a malformed submission before any state changes.
func validateSubmission(sub Submission) error {
	if sub.UserID == "" {
		return errors.New("user_id is required")
	}
	if _, err := validate.Identifier(sub.UserID); err != nil {
		return fmt.Errorf("invalid user_id: %w", err)
	}
	if sub.EntityID == "" {
		return errors.New("entity_id is required")
	}
	if _, err := validate.Identifier(sub.EntityID); err != nil {
		return fmt.Errorf("invalid entity_id: %w", err)
	}
	if err := feedback.ValidateRating(sub.Rating); err != nil {
		return err
	}
	for category, rating := range sub.Categories {
		if err := feedback.ValidateCategory(category); err != nil {
			return err
		}
		if rating != 0 {
			if err := feedback.ValidateRating(rating); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProcessFeedback runs the full pipeline for one submission. Repeat
// submissions for the same (user, entity) pair replace the earlier
// record rather than accumulating. The trust recalculation happens
// synchronously so reads after the call observe the new score.
func (s *Service) ProcessFeedback(ctx context.Context, sub Submission) (*Result, error) {
	ctx, endSpan := tracing.StartSpan(ctx, "engine.process_feedback")
	var err error
	defer func() { endSpan(err) }()

	start := time.Now()

	if err = validateSubmission(sub); err != nil {
		if s.metrics != nil {
			s.metrics.IncRejected()
		}
		s.logger.Warn("feedback submission rejected",
			slog.String("user_id", sub.UserID),
			slog.String("entity_id", sub.EntityID),
			slog.String("error", err.Error()))
		err = &InputError{Err: err}
		return nil, err
	}

	// Serialize per user: the trust recompute and every category weight
	// adjustment below are read-modify-write sequences.
	unlock := s.locks.Lock(sub.UserID)
	defer unlock()

	rec, upsertErr := s.feedback.Upsert(ctx, sub.UserID, sub.EntityID, sub.Rating, sub.Categories)
	if upsertErr != nil {
		err = &DependencyError{Op: "persist feedback", Err: upsertErr}
		return nil, err
	}

	sig, recalcErr := s.trust.Recalculate(ctx, sub.UserID)
	if recalcErr != nil {
		err = &DependencyError{Op: "recalculate trust", Err: recalcErr}
		return nil, err
	}

	for category, rating := range sub.Categories {
		if rating == 0 {
			rating = sub.Rating
		}
		if _, weightErr := s.weights.Update(ctx, sub.UserID, category, rating); weightErr != nil {
			err = &DependencyError{Op: "update category weight", Err: weightErr}
			return nil, err
		}
	}

	if s.aggregator != nil {
		s.aggregator.InvalidateEntity(ctx, sub.EntityID)
		for category := range sub.Categories {
			s.aggregator.InvalidateCategory(ctx, category)
		}
	}

	if s.metrics != nil {
		s.metrics.IncProcessed()
		s.metrics.ObserveProcessDuration(time.Since(start).Seconds())
	}

	s.logger.Info("feedback processed",
		slog.String("user_id", sub.UserID),
		slog.String("entity_id", sub.EntityID),
		slog.Int("rating", sub.Rating),
		slog.Float64("trust_score", sig.Score),
		slog.Duration("duration", time.Since(start)))

	return &Result{Record: rec, TrustScore: sig.Score}, nil
}
