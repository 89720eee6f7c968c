package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/affinity"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/feedback"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/tracing"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/trust"
)

// Trip is one ranking candidate.
type Trip struct {
	TripID    string  `json:"trip_id"`
	BaseScore float64 `json:"base_score"`
	Category  string  `json:"category,omitempty"`
}

// ScoredTrip is a ranking candidate with its computed final score and the
// components that produced it.
type ScoredTrip struct {
	Trip
	FinalScore      float64 `json:"final_score"`
	TrustMultiplier float64 `json:"trust_multiplier"`
	CategoryWeight  float64 `json:"category_weight"`
}

// TrustRanker implements the multiplicative trust-weighted policy.
type TrustRanker struct {
	trust    *trust.Engine
	weights  *affinity.Learner
	feedback feedback.Store
	config   *Config
	logger   *slog.Logger
}

// NewTrustRanker creates the multiplicative ranker. Config nil means
// defaults; logger nil means slog.Default().
func NewTrustRanker(trustEngine *trust.Engine, weights *affinity.Learner, feedbackStore feedback.Store, config *Config, logger *slog.Logger) *TrustRanker {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TrustRanker{
		trust:    trustEngine,
		weights:  weights,
		feedback: feedbackStore,
		config:   config,
		logger:   logger,
	}
}

// Confidence is the saturating feedback-volume function n / (n + K).
// A single feedback cannot swing trust influence sharply.
func Confidence(totalFeedback int, k float64) float64 {
	if totalFeedback <= 0 {
		return 0
	}
	n := float64(totalFeedback)
	return n / (n + k)
}

// TrustMultiplier maps an effective trust value to the multiplier range
// [base, base+span]: 0.8 at zero trust, 1.2 at full trust by default.
func (r *TrustRanker) TrustMultiplier(effectiveTrust float64) float64 {
	return r.config.MultiplierBase + r.config.MultiplierSpan*effectiveTrust
}

// ComputeScore applies the multiplicative policy for one candidate:
// finalScore = baseScore * categoryWeight * trustMultiplier. Missing
// trust signals default to the neutral 0.5 and missing category weights
// to the neutral 1.0, so fresh users rank with the baseline dampening.
func (r *TrustRanker) ComputeScore(ctx context.Context, userID string, baseScore float64, category string) (*ScoredTrip, error) {
	trustScore, err := r.trust.ScoreOrNeutral(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trust score: %w", err)
	}

	totalFeedback, err := r.feedback.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count feedback: %w", err)
	}

	categoryWeight := affinity.NeutralWeight
	if category != "" {
		categoryWeight, err = r.weights.WeightOrNeutral(ctx, userID, category)
		if err != nil {
			return nil, fmt.Errorf("failed to load category weight: %w", err)
		}
	}

	confidence := Confidence(totalFeedback, r.config.ConfidenceK)
	effectiveTrust := trustScore * confidence
	multiplier := r.TrustMultiplier(effectiveTrust)

	return &ScoredTrip{
		Trip:            Trip{BaseScore: baseScore, Category: category},
		FinalScore:      baseScore * categoryWeight * multiplier,
		TrustMultiplier: multiplier,
		CategoryWeight:  categoryWeight,
	}, nil
}

// RankTrips scores a candidate list for one user and sorts it descending
// by final score. The sort is stable: ties keep their input order.
func (r *TrustRanker) RankTrips(ctx context.Context, userID string, trips []Trip) ([]ScoredTrip, error) {
	ctx, endSpan := tracing.StartSpan(ctx, "ranking.rank_trips")
	var err error
	defer func() { endSpan(err) }()

	scored := make([]ScoredTrip, 0, len(trips))
	for _, trip := range trips {
		s, scoreErr := r.ComputeScore(ctx, userID, trip.BaseScore, trip.Category)
		if scoreErr != nil {
			err = scoreErr
			return nil, err
		}
		s.TripID = trip.TripID
		scored = append(scored, *s)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].FinalScore > scored[j].FinalScore
	})

	r.logger.Debug("trips ranked",
		slog.String("user_id", userID),
		slog.Int("candidates", len(trips)))

	return scored, nil
}
