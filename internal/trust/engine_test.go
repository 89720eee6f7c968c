package trust

import (
	"context"
	"math"
	"testing"

	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/feedback"
)

func TestEngine_Recalculate_NoFeedback(t *testing.T) {
	ctx := context.Background()
	feedbackStore := feedback.NewInMemoryStore()
	trustStore := NewInMemoryStore()
	engine := NewEngine(feedbackStore, trustStore, nil, nil)

	sig, err := engine.Recalculate(ctx, "user-1")
	if err != nil {
		t.Fatalf("Recalculate returned error: %v", err)
	}
	if sig.Score != NeutralScore {
		t.Errorf("score = %f, want neutral 0.5", sig.Score)
	}
	if sig.Version != 1 {
		t.Errorf("version = %d, want 1", sig.Version)
	}

	stored, err := trustStore.Get(ctx, "user-1")
	if err != nil || stored == nil {
		t.Fatalf("signal not persisted: %v", err)
	}
}

func TestEngine_Recalculate_MixedFeedback(t *testing.T) {
	ctx := context.Background()
	feedbackStore := feedback.NewInMemoryStore()
	trustStore := NewInMemoryStore()
	engine := NewEngine(feedbackStore, trustStore, nil, NewMetrics())

	// Same-day 5 and 2: (1 + 2) / (1 + 1 + 4) = 0.5
	feedbackStore.Upsert(ctx, "user-1", "trip-1", 5, nil)
	feedbackStore.Upsert(ctx, "user-1", "trip-2", 2, nil)

	sig, err := engine.Recalculate(ctx, "user-1")
	if err != nil {
		t.Fatalf("Recalculate returned error: %v", err)
	}
	if math.Abs(sig.Score-0.5) > 1e-6 {
		t.Errorf("score = %f, want 0.5", sig.Score)
	}
}

func TestEngine_Recalculate_VersionIncrements(t *testing.T) {
	ctx := context.Background()
	feedbackStore := feedback.NewInMemoryStore()
	trustStore := NewInMemoryStore()
	engine := NewEngine(feedbackStore, trustStore, nil, nil)

	first, err := engine.Recalculate(ctx, "user-1")
	if err != nil {
		t.Fatalf("Recalculate returned error: %v", err)
	}
	second, err := engine.Recalculate(ctx, "user-1")
	if err != nil {
		t.Fatalf("Recalculate returned error: %v", err)
	}

	if second.Version != first.Version+1 {
		t.Errorf("version did not increment: %d -> %d", first.Version, second.Version)
	}
	// Idempotence: identical input state converges to the same score.
	if second.Score != first.Score {
		t.Errorf("repeated recalculation diverged: %f -> %f", first.Score, second.Score)
	}
}

func TestEngine_ScoreOrNeutral(t *testing.T) {
	ctx := context.Background()
	engine := NewEngine(feedback.NewInMemoryStore(), NewInMemoryStore(), nil, nil)

	score, err := engine.ScoreOrNeutral(ctx, "unknown")
	if err != nil {
		t.Fatalf("ScoreOrNeutral returned error: %v", err)
	}
	if score != NeutralScore {
		t.Errorf("score = %f, want neutral 0.5 for unknown user", score)
	}
}
