// Package validation audits stored feedback and learned trust state for
// duplication, corruption, and drift. Findings are structured results for
// operators, never errors.
package validation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/feedback"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/tracing"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/trust"
)

const (
	// DiscrepancyTolerance is the largest acceptable gap between the
	// stored trust score and an independent recomputation.
	DiscrepancyTolerance = 0.01

	// SystemSampleSize bounds how many users the system validation
	// recomputes trust for.
	SystemSampleSize = 20
)

// UserReport is the structured audit result for one user.
type UserReport struct {
	UserID               string   `json:"user_id"`
	TotalFeedback        int      `json:"total_feedback"`
	IsDuplicate          bool     `json:"is_duplicate"`
	IsCorrupted          bool     `json:"is_corrupted"`
	DiscrepancyDetected  bool     `json:"discrepancy_detected"`
	StoredTrustScore     float64  `json:"stored_trust_score"`
	RecomputedTrustScore float64  `json:"recomputed_trust_score"`
	Issues               []string `json:"issues"`
}

// SystemReport is the system-wide audit summary.
type SystemReport struct {
	TotalFeedback        int       `json:"total_feedback"`
	DistinctPairs        int       `json:"distinct_pairs"`
	DuplicatesDetected   bool      `json:"duplicates_detected"`
	CorruptedRecords     int       `json:"corrupted_records"`
	UsersSampled         int       `json:"users_sampled"`
	UsersWithDiscrepancy int       `json:"users_with_discrepancy"`
	GeneratedAt          time.Time `json:"generated_at"`
}

// Validator cross-checks raw feedback against learned trust state.
type Validator struct {
	feedback feedback.Store
	trust    trust.Store
	logger   *slog.Logger
}

// NewValidator creates an aggregation validator.
func NewValidator(feedbackStore feedback.Store, trustStore trust.Store, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{feedback: feedbackStore, trust: trustStore, logger: logger}
}

// ValidateUser audits one user's feedback and trust state.
//
// Duplicates: more than one record per entity should be structurally
// impossible given the upsert invariant; finding one means a write-path
// bug. Corruption: records whose rating could not be normalized.
// Discrepancy: the stored trust score diverges from an independent
// recomputation beyond tolerance, the primary self-healing signal for
// drift between computed and stored state.
func (v *Validator) ValidateUser(ctx context.Context, userID string) (*UserReport, error) {
	ctx, endSpan := tracing.StartSpan(ctx, "validation.user")
	var err error
	defer func() { endSpan(err) }()

	records, err := v.feedback.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback for validation: %w", err)
	}

	report := &UserReport{
		UserID:        userID,
		TotalFeedback: len(records),
	}

	byEntity := make(map[string]int)
	for _, rec := range records {
		byEntity[rec.EntityID]++
		if !rec.HasRating() {
			report.IsCorrupted = true
			report.Issues = append(report.Issues, fmt.Sprintf(
				"record %s for entity %s has a missing or non-numeric rating", rec.ID, rec.EntityID))
		}
	}
	for entityID, count := range byEntity {
		if count > 1 {
			report.IsDuplicate = true
			report.Issues = append(report.Issues, fmt.Sprintf(
				"entity %s has %d records for this user; the upsert invariant allows one", entityID, count))
		}
	}

	report.RecomputedTrustScore = trust.ComputeScore(records, time.Now())

	sig, err := v.trust.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trust signal for validation: %w", err)
	}
	if sig != nil {
		report.StoredTrustScore = sig.Score
		if math.Abs(sig.Score-report.RecomputedTrustScore) > DiscrepancyTolerance {
			report.DiscrepancyDetected = true
			report.Issues = append(report.Issues, fmt.Sprintf(
				"stored trust %.4f diverges from recomputed %.4f beyond tolerance %.2f",
				sig.Score, report.RecomputedTrustScore, DiscrepancyTolerance))
		}
	}

	return report, nil
}

// ValidateSystem audits the whole store: total rows against distinct
// (user, entity) pairs, a corruption scan, and per-user trust
// recomputation over a bounded sample. Diagnostic only, not part of the
// request-serving hot path; failures degrade to an empty report.
func (v *Validator) ValidateSystem(ctx context.Context) *SystemReport {
	ctx, endSpan := tracing.StartSpan(ctx, "validation.system")
	defer endSpan(nil)

	report := &SystemReport{GeneratedAt: time.Now()}

	total, err := v.feedback.CountAll(ctx)
	if err != nil {
		v.logger.Error("system validation failed to count feedback, returning empty report",
			slog.String("error", err.Error()))
		return report
	}
	pairs, err := v.feedback.CountDistinctPairs(ctx)
	if err != nil {
		v.logger.Error("system validation failed to count pairs, returning empty report",
			slog.String("error", err.Error()))
		return report
	}
	report.TotalFeedback = total
	report.DistinctPairs = pairs
	report.DuplicatesDetected = total > pairs

	all, err := v.feedback.ListAll(ctx)
	if err != nil {
		v.logger.Error("system validation failed to scan feedback",
			slog.String("error", err.Error()))
	} else {
		for _, rec := range all {
			if !rec.HasRating() {
				report.CorruptedRecords++
			}
		}
	}

	userIDs, err := v.feedback.DistinctUserIDs(ctx, SystemSampleSize)
	if err != nil {
		v.logger.Error("system validation failed to sample users",
			slog.String("error", err.Error()))
		return report
	}
	report.UsersSampled = len(userIDs)

	for _, userID := range userIDs {
		userReport, err := v.ValidateUser(ctx, userID)
		if err != nil {
			v.logger.Error("system validation failed for user, skipping",
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
			continue
		}
		if userReport.DiscrepancyDetected {
			report.UsersWithDiscrepancy++
		}
	}

	v.logger.Info("system validation completed",
		slog.Int("total_feedback", report.TotalFeedback),
		slog.Int("distinct_pairs", report.DistinctPairs),
		slog.Bool("duplicates", report.DuplicatesDetected),
		slog.Int("corrupted", report.CorruptedRecords),
		slog.Int("users_with_discrepancy", report.UsersWithDiscrepancy))

	return report
}
