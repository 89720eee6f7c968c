// Package ranking provides the two score-adjustment policies used to
// re-rank trip recommendations from learned feedback state.
//
// Two policies coexist on purpose and are not interchangeable:
//
// Multiplicative trust-weighted policy (TrustRanker):
//
//	confidence      = totalFeedback / (totalFeedback + K)
//	effectiveTrust  = trustScore * confidence
//	trustMultiplier = 0.8 + 0.4 * effectiveTrust   // range [0.8, 1.2]
//	finalScore      = baseScore * categoryWeight * trustMultiplier
//
// Used for general relevance re-ranking; RankTrips batches it over a
// candidate list and sorts descending with a stable sort, so ties keep
// their input order.
//
// Additive threshold-gated policy (FeedbackAdjuster):
//
//	positiveRatio  = positiveCount / (positiveCount + negativeCount)
//	feedbackWeight = (positiveRatio - 0.5) * 2 * 0.3   // clamped to [-0.3, 0.3]
//	adjustedScore  = baseScore + feedbackWeight
//
// Used for per-entity feedback-aware nudging; below 3 total feedbacks the
// base score passes through unchanged with an explanatory reason.
//
// The two policies also disagree on where "positive" starts: the additive
// policy consumes aggregation counts (rating 3 negative) while the trust
// multiplier builds on the trust engine (rating 3 neutral). The
// divergence is inherited and documented rather than reconciled.
//
// Calibration:
//
// Tunables live in Config. LoadCalibration reads a JSON file at startup
// and merges partial overrides over DefaultConfig, enabling deploy-time
// tuning without code changes.
package ranking
