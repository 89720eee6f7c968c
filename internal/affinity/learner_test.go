package affinity

import (
	"context"
	"math"
	"testing"
)

func TestLearner_FirstFeedbackCreatesNeutral(t *testing.T) {
	ctx := context.Background()
	learner := NewLearner(NewInMemoryStore(), nil)

	cw, err := learner.Update(ctx, "user-1", "beach", 5)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if cw.Weight != NeutralWeight {
		t.Errorf("weight = %f, want neutral 1.0", cw.Weight)
	}
	if cw.FeedbackCount != 1 {
		t.Errorf("feedback count = %d, want 1", cw.FeedbackCount)
	}
}

func TestLearner_ColdStartGuard(t *testing.T) {
	ctx := context.Background()
	learner := NewLearner(NewInMemoryStore(), nil)

	// First 3 feedbacks never move the weight, even all 5-star.
	var cw *CategoryWeight
	var err error
	for i := 0; i < 3; i++ {
		cw, err = learner.Update(ctx, "user-1", "beach", 5)
		if err != nil {
			t.Fatalf("Update returned error: %v", err)
		}
		if cw.Weight != NeutralWeight {
			t.Fatalf("feedback #%d moved weight to %f, want 1.0", i+1, cw.Weight)
		}
	}
	if cw.FeedbackCount != 3 {
		t.Fatalf("feedback count = %d, want 3", cw.FeedbackCount)
	}

	// The 4th feedback is the first to move it: 1.0 + 0.1 = 1.1
	cw, err = learner.Update(ctx, "user-1", "beach", 5)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if math.Abs(cw.Weight-1.1) > 1e-9 {
		t.Errorf("4th feedback weight = %f, want 1.1", cw.Weight)
	}
	if cw.FeedbackCount != 4 {
		t.Errorf("feedback count = %d, want 4", cw.FeedbackCount)
	}
}

func TestLearner_Adjustments(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	learner := NewLearner(store, nil)

	// Seed past the cold-start guard at neutral.
	store.Upsert(ctx, "user-1", "hiking", NeutralWeight, MinThreshold)

	tests := []struct {
		name   string
		rating int
		want   float64
	}{
		{name: "positive adds step", rating: 4, want: 1.1},
		{name: "another positive", rating: 5, want: 1.2},
		{name: "neutral unchanged", rating: 3, want: 1.2},
		{name: "negative subtracts step", rating: 2, want: 1.1},
		{name: "strong negative subtracts step", rating: 1, want: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cw, err := learner.Update(ctx, "user-1", "hiking", tt.rating)
			if err != nil {
				t.Fatalf("Update returned error: %v", err)
			}
			if math.Abs(cw.Weight-tt.want) > 1e-9 {
				t.Errorf("weight = %f, want %f", cw.Weight, tt.want)
			}
		})
	}
}

func TestLearner_ClampBounds(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	learner := NewLearner(store, nil)

	// Start just below the upper clamp.
	store.Upsert(ctx, "user-1", "food", 1.95, 100)
	cw, err := learner.Update(ctx, "user-1", "food", 5)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if cw.Weight != MaxWeight {
		t.Errorf("weight = %f, want clamped to %f", cw.Weight, MaxWeight)
	}

	// Many more positives never escape the clamp.
	for i := 0; i < 50; i++ {
		cw, _ = learner.Update(ctx, "user-1", "food", 5)
	}
	if cw.Weight != MaxWeight {
		t.Errorf("weight = %f after 50 positives, want %f", cw.Weight, MaxWeight)
	}

	// Same for the lower bound.
	store.Upsert(ctx, "user-2", "food", 0.55, 100)
	for i := 0; i < 50; i++ {
		cw, _ = learner.Update(ctx, "user-2", "food", 1)
	}
	if cw.Weight != MinWeight {
		t.Errorf("weight = %f after 50 negatives, want %f", cw.Weight, MinWeight)
	}
}

func TestLearner_WeightOrNeutral(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	learner := NewLearner(store, nil)

	w, err := learner.WeightOrNeutral(ctx, "user-1", "unknown")
	if err != nil {
		t.Fatalf("WeightOrNeutral returned error: %v", err)
	}
	if w != NeutralWeight {
		t.Errorf("weight = %f, want neutral 1.0 for unknown pair", w)
	}

	store.Upsert(ctx, "user-1", "beach", 1.4, 10)
	w, err = learner.WeightOrNeutral(ctx, "user-1", "beach")
	if err != nil {
		t.Fatalf("WeightOrNeutral returned error: %v", err)
	}
	if w != 1.4 {
		t.Errorf("weight = %f, want 1.4", w)
	}
}

func TestInMemoryStore_ListExtreme(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	store.Upsert(ctx, "u1", "a", 0.55, 5) // below low
	store.Upsert(ctx, "u1", "b", 1.0, 5)  // inside
	store.Upsert(ctx, "u2", "c", 1.9, 5)  // above high

	extreme, err := store.ListExtreme(ctx, 0.6, 1.8)
	if err != nil {
		t.Fatalf("ListExtreme returned error: %v", err)
	}
	if len(extreme) != 2 {
		t.Fatalf("ListExtreme returned %d rows, want 2", len(extreme))
	}
	if extreme[0].UserID != "u1" || extreme[1].UserID != "u2" {
		t.Errorf("unexpected rows: %+v", extreme)
	}
}
