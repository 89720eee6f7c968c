package bias

import (
	"context"
	"testing"

	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/affinity"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/trust"
)

func newMonitor() (*Monitor, *affinity.InMemoryStore, *trust.InMemoryStore) {
	weights := affinity.NewInMemoryStore()
	trustStore := trust.NewInMemoryStore()
	return NewMonitor(weights, trustStore, nil), weights, trustStore
}

func TestDetectUserBias_Clean(t *testing.T) {
	ctx := context.Background()
	monitor, weights, trustStore := newMonitor()

	weights.Upsert(ctx, "user-1", "beach", 1.2, 10)
	trustStore.Upsert(ctx, "user-1", 0.7)

	report, err := monitor.DetectUserBias(ctx, "user-1")
	if err != nil {
		t.Fatalf("DetectUserBias returned error: %v", err)
	}
	if report.IsFlagged {
		t.Errorf("clean user flagged: %+v", report)
	}
	if len(report.Reasons) != 0 {
		t.Errorf("expected no reasons, got %v", report.Reasons)
	}
	if report.TrustScore != 0.7 {
		t.Errorf("trustScore = %f, want 0.7", report.TrustScore)
	}
}

func TestDetectUserBias_Thresholds(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		weight      float64
		wantFlagged bool
	}{
		{name: "suppressed", weight: 0.55, wantFlagged: true},
		{name: "just above suppressed", weight: 0.6, wantFlagged: false},
		{name: "over-weighted", weight: 1.9, wantFlagged: true},
		{name: "just below over-weighted", weight: 1.8, wantFlagged: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			monitor, weights, _ := newMonitor()
			weights.Upsert(ctx, "user-1", "cat", tt.weight, 10)

			report, err := monitor.DetectUserBias(ctx, "user-1")
			if err != nil {
				t.Fatalf("DetectUserBias returned error: %v", err)
			}
			if report.IsFlagged != tt.wantFlagged {
				t.Errorf("weight %f flagged = %v, want %v", tt.weight, report.IsFlagged, tt.wantFlagged)
			}
		})
	}
}

func TestDetectUserBias_AllThreeFlags(t *testing.T) {
	ctx := context.Background()
	monitor, weights, trustStore := newMonitor()

	// Suppressed + over-weighted + low trust: one report, three reasons.
	weights.Upsert(ctx, "user-1", "museum", 0.55, 10)
	weights.Upsert(ctx, "user-1", "beach", 1.9, 10)
	trustStore.Upsert(ctx, "user-1", 0.15)

	report, err := monitor.DetectUserBias(ctx, "user-1")
	if err != nil {
		t.Fatalf("DetectUserBias returned error: %v", err)
	}
	if !report.IsFlagged {
		t.Fatal("expected flagged report")
	}
	if len(report.Reasons) != 3 {
		t.Errorf("reasons = %d, want 3: %v", len(report.Reasons), report.Reasons)
	}
	if len(report.SuppressedCategories) != 1 || report.SuppressedCategories[0] != "museum" {
		t.Errorf("suppressed = %v, want [museum]", report.SuppressedCategories)
	}
	if len(report.OverweightedCategories) != 1 || report.OverweightedCategories[0] != "beach" {
		t.Errorf("over-weighted = %v, want [beach]", report.OverweightedCategories)
	}
}

func TestDetectUserBias_MissingTrustIsNeutral(t *testing.T) {
	ctx := context.Background()
	monitor, _, _ := newMonitor()

	report, err := monitor.DetectUserBias(ctx, "unknown")
	if err != nil {
		t.Fatalf("DetectUserBias returned error: %v", err)
	}
	if report.TrustScore != trust.NeutralScore {
		t.Errorf("trustScore = %f, want neutral 0.5", report.TrustScore)
	}
	if report.IsFlagged {
		t.Error("user without state should not be flagged")
	}
}

func TestRunSystemScan(t *testing.T) {
	ctx := context.Background()
	monitor, weights, trustStore := newMonitor()

	weights.Upsert(ctx, "biased", "beach", 1.95, 20)
	weights.Upsert(ctx, "clean", "beach", 1.0, 20)
	trustStore.Upsert(ctx, "biased", 0.9)
	trustStore.Upsert(ctx, "clean", 0.9)

	reports := monitor.RunSystemScan(ctx)
	if len(reports) != 1 {
		t.Fatalf("scan returned %d reports, want 1", len(reports))
	}
	if reports[0].UserID != "biased" {
		t.Errorf("flagged user = %s, want biased", reports[0].UserID)
	}
}

func TestSummaryStats(t *testing.T) {
	ctx := context.Background()
	monitor, weights, _ := newMonitor()

	weights.Upsert(ctx, "u1", "a", 0.5, 5) // suppressed
	weights.Upsert(ctx, "u2", "b", 1.9, 5) // over-weighted
	weights.Upsert(ctx, "u3", "c", 1.0, 5) // normal
	weights.Upsert(ctx, "u4", "d", 1.2, 5) // normal

	stats, err := monitor.SummaryStats(ctx)
	if err != nil {
		t.Fatalf("SummaryStats returned error: %v", err)
	}
	if stats.TotalWeights != 4 {
		t.Errorf("total = %d, want 4", stats.TotalWeights)
	}
	if stats.SuppressedCount != 1 || stats.OverweightedCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1", stats.SuppressedCount, stats.OverweightedCount)
	}
	if stats.SuppressedRate != 25 || stats.OverweightedRate != 25 {
		t.Errorf("rates = %f/%f, want 25/25", stats.SuppressedRate, stats.OverweightedRate)
	}
	if stats.SuppressedThreshold != SuppressedThreshold {
		t.Errorf("threshold constants missing from stats: %+v", stats)
	}
}
