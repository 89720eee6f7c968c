// Package bias cross-checks learned trust and affinity state for drift
// into extremes that are unsafe to act on unmoderated.
package bias

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/affinity"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/tracing"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/trust"
)

// Flagging thresholds. Observability constants, not enforcement: the
// report tells operators where to look, it does not gate writes.
const (
	// SuppressedThreshold flags category weights below this value.
	SuppressedThreshold = 0.6

	// OverweightedThreshold flags category weights above this value.
	OverweightedThreshold = 1.8

	// LowTrustThreshold flags trust scores below this value.
	LowTrustThreshold = 0.2
)

// Report is the per-user bias finding. Computed on demand, never stored.
type Report struct {
	UserID                 string   `json:"user_id"`
	SuppressedCategories   []string `json:"suppressed_categories"`
	OverweightedCategories []string `json:"overweighted_categories"`
	TrustScore             float64  `json:"trust_score"`
	IsFlagged              bool     `json:"is_flagged"`
	Reasons                []string `json:"reasons"`
}

// SummaryStats is the system-wide weight distribution summary.
type SummaryStats struct {
	TotalWeights          int     `json:"total_weights"`
	SuppressedCount       int     `json:"suppressed_count"`
	OverweightedCount     int     `json:"overweighted_count"`
	SuppressedRate        float64 `json:"suppressed_rate_percent"`
	OverweightedRate      float64 `json:"overweighted_rate_percent"`
	SuppressedThreshold   float64 `json:"suppressed_threshold"`
	OverweightedThreshold float64 `json:"overweighted_threshold"`
	LowTrustThreshold     float64 `json:"low_trust_threshold"`
}

// Monitor inspects learned state for anomalies.
type Monitor struct {
	weights affinity.Store
	trust   trust.Store
	logger  *slog.Logger
}

// NewMonitor creates a bias monitor.
func NewMonitor(weights affinity.Store, trustStore trust.Store, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{weights: weights, trust: trustStore, logger: logger}
}

// DetectUserBias builds the bias report for one user from their category
// weights and trust signal. A missing trust signal counts as neutral and
// is never flagged.
func (m *Monitor) DetectUserBias(ctx context.Context, userID string) (*Report, error) {
	ctx, endSpan := tracing.StartSpan(ctx, "bias.detect_user")
	var err error
	defer func() { endSpan(err) }()

	weights, err := m.weights.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load category weights: %w", err)
	}

	report := &Report{
		UserID:     userID,
		TrustScore: trust.NeutralScore,
	}

	for _, cw := range weights {
		switch {
		case cw.Weight < SuppressedThreshold:
			report.SuppressedCategories = append(report.SuppressedCategories, cw.Category)
			report.Reasons = append(report.Reasons, fmt.Sprintf(
				"category %q suppressed: weight %.2f below %.2f",
				cw.Category, cw.Weight, SuppressedThreshold))
		case cw.Weight > OverweightedThreshold:
			report.OverweightedCategories = append(report.OverweightedCategories, cw.Category)
			report.Reasons = append(report.Reasons, fmt.Sprintf(
				"category %q over-weighted: weight %.2f above %.2f",
				cw.Category, cw.Weight, OverweightedThreshold))
		}
	}

	sig, err := m.trust.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trust signal: %w", err)
	}
	if sig != nil {
		report.TrustScore = sig.Score
		if sig.Score < LowTrustThreshold {
			report.Reasons = append(report.Reasons, fmt.Sprintf(
				"low trust: score %.2f below %.2f", sig.Score, LowTrustThreshold))
		}
	}

	report.IsFlagged = len(report.Reasons) > 0
	return report, nil
}

// RunSystemScan finds every user holding at least one extreme category
// weight and returns the flagged reports. Read-heavy batch operation;
// rate limiting is the caller's concern. Failures degrade to an empty
// result to keep the diagnostic surface available.
func (m *Monitor) RunSystemScan(ctx context.Context) []*Report {
	ctx, endSpan := tracing.StartSpan(ctx, "bias.system_scan")
	defer endSpan(nil)

	extreme, err := m.weights.ListExtreme(ctx, SuppressedThreshold, OverweightedThreshold)
	if err != nil {
		m.logger.Error("bias scan failed to list extreme weights, returning empty",
			slog.String("error", err.Error()))
		return nil
	}

	candidates := make(map[string]struct{})
	for _, cw := range extreme {
		candidates[cw.UserID] = struct{}{}
	}
	userIDs := make([]string, 0, len(candidates))
	for userID := range candidates {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	var flagged []*Report
	for _, userID := range userIDs {
		report, err := m.DetectUserBias(ctx, userID)
		if err != nil {
			m.logger.Error("bias scan failed for user, skipping",
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
			continue
		}
		if report.IsFlagged {
			flagged = append(flagged, report)
		}
	}

	m.logger.Info("bias scan completed",
		slog.Int("candidates", len(userIDs)),
		slog.Int("flagged", len(flagged)))

	return flagged
}

// SummaryStats counts suppressed and over-weighted rows across the whole
// weight table and reports their rates as percentages, alongside the
// thresholds used.
func (m *Monitor) SummaryStats(ctx context.Context) (*SummaryStats, error) {
	total, err := m.weights.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count category weights: %w", err)
	}

	extreme, err := m.weights.ListExtreme(ctx, SuppressedThreshold, OverweightedThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to list extreme weights: %w", err)
	}

	stats := &SummaryStats{
		TotalWeights:          total,
		SuppressedThreshold:   SuppressedThreshold,
		OverweightedThreshold: OverweightedThreshold,
		LowTrustThreshold:     LowTrustThreshold,
	}
	for _, cw := range extreme {
		if cw.Weight < SuppressedThreshold {
			stats.SuppressedCount++
		} else {
			stats.OverweightedCount++
		}
	}
	if total > 0 {
		stats.SuppressedRate = float64(stats.SuppressedCount) / float64(total) * 100
		stats.OverweightedRate = float64(stats.OverweightedCount) / float64(total) * 100
	}
	return stats, nil
}
