// Package aggregate computes cached statistical summaries of feedback per
// entity, destination, or category.
//
// The reduction here counts rating 3 as negative (positive means rating
// >= 4, everything below is negative). The trust engine treats rating 3
// as neutral instead. The two rules evolved independently and are kept
// divergent on purpose; reconciling them is a product decision.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/cache"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/feedback"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/tracing"
)

const (
	// CacheTTL is how long an aggregation stays cached without explicit
	// invalidation.
	CacheTTL = 10 * time.Minute

	// MinimumThreshold is the feedback volume below which an aggregation
	// is considered too thin to act on.
	MinimumThreshold = 3

	// SlowAggregationThreshold triggers an advisory log when a cache-miss
	// aggregation takes longer. Advisory only, not a correctness bound.
	SlowAggregationThreshold = 200 * time.Millisecond

	// PositiveRating is the lowest rating counted as positive by the
	// aggregation reduction. Everything below, including 3, is negative.
	PositiveRating = 4
)

// CategoryStats summarizes sub-ratings for one category.
type CategoryStats struct {
	Positive int     `json:"positive"`
	Negative int     `json:"negative"`
	Average  float64 `json:"average"`
	Total    int     `json:"total"`
}

// Result is a cached statistical summary of a feedback set.
type Result struct {
	TotalFeedback       int                      `json:"total_feedback"`
	PositiveCount       int                      `json:"positive_count"`
	NegativeCount       int                      `json:"negative_count"`
	AverageRating       float64                  `json:"average_rating"`
	CategoryBreakdown   map[string]CategoryStats `json:"category_breakdown,omitempty"`
	HasMinimumThreshold bool                     `json:"has_minimum_threshold"`
}

// DestinationResolver maps a destination to the entity IDs that belong to
// it. Implemented by the surrounding trip layer.
type DestinationResolver interface {
	ListEntityIDs(ctx context.Context, destination string) ([]string, error)
}

// Aggregator computes and caches feedback summaries.
type Aggregator struct {
	store        feedback.Store
	destinations DestinationResolver
	cache        cache.Cache
	logger       *slog.Logger
}

// NewAggregator creates an aggregator. The resolver may be nil when
// destination aggregation is not needed; logger may be nil.
func NewAggregator(store feedback.Store, destinations DestinationResolver, c cache.Cache, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		store:        store,
		destinations: destinations,
		cache:        c,
		logger:       logger,
	}
}

// Cache keys are scoped per query kind so invalidation stays precise.
func entityKey(entityID string) string   { return "agg:entity:" + entityID }
func destinationKey(dest string) string  { return "agg:dest:" + dest }
func categoryKey(category string) string { return "agg:category:" + category }

// ByEntity aggregates all feedback for one entity. Cached for CacheTTL.
// Store failures degrade to an empty result; aggregation is a read-heavy
// diagnostic path and availability wins over completeness here.
func (a *Aggregator) ByEntity(ctx context.Context, entityID string) Result {
	return a.cached(ctx, entityKey(entityID), func(ctx context.Context) ([]feedback.Record, error) {
		return a.store.ListByEntity(ctx, entityID)
	})
}

// ByDestination resolves the destination's entities and aggregates the
// union of their feedback.
func (a *Aggregator) ByDestination(ctx context.Context, destination string) Result {
	return a.cached(ctx, destinationKey(destination), func(ctx context.Context) ([]feedback.Record, error) {
		if a.destinations == nil {
			return nil, fmt.Errorf("no destination resolver configured")
		}
		entityIDs, err := a.destinations.ListEntityIDs(ctx, destination)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve destination %s: %w", destination, err)
		}
		var records []feedback.Record
		for _, entityID := range entityIDs {
			recs, err := a.store.ListByEntity(ctx, entityID)
			if err != nil {
				return nil, err
			}
			records = append(records, recs...)
		}
		return records, nil
	})
}

// ByCategory scans all feedback and keeps records whose sub-ratings
// mention the category.
func (a *Aggregator) ByCategory(ctx context.Context, category string) Result {
	return a.cached(ctx, categoryKey(category), func(ctx context.Context) ([]feedback.Record, error) {
		all, err := a.store.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		var matched []feedback.Record
		for _, rec := range all {
			if _, ok := rec.Categories[category]; ok {
				matched = append(matched, rec)
			}
		}
		return matched, nil
	})
}

// InvalidateEntity drops the cached aggregation for an entity. Callers
// that mutate feedback are responsible for invoking the invalidation
// hooks; the cache itself never watches for writes.
func (a *Aggregator) InvalidateEntity(ctx context.Context, entityID string) {
	a.invalidate(ctx, entityKey(entityID))
}

// InvalidateDestination drops the cached aggregation for a destination.
func (a *Aggregator) InvalidateDestination(ctx context.Context, destination string) {
	a.invalidate(ctx, destinationKey(destination))
}

// InvalidateCategory drops the cached aggregation for a category.
func (a *Aggregator) InvalidateCategory(ctx context.Context, category string) {
	a.invalidate(ctx, categoryKey(category))
}

func (a *Aggregator) invalidate(ctx context.Context, key string) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Delete(ctx, key); err != nil {
		a.logger.Warn("cache invalidation failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
}

// cached wraps a record loader with the cache-aside pattern and the slow
// aggregation advisory log.
func (a *Aggregator) cached(ctx context.Context, key string, load func(context.Context) ([]feedback.Record, error)) Result {
	ctx, endSpan := tracing.StartSpan(ctx, "aggregate."+key)
	defer endSpan(nil)

	if a.cache != nil {
		var result Result
		hit, err := a.cache.Get(ctx, key, &result)
		if err != nil {
			a.logger.Warn("cache read failed",
				slog.String("key", key),
				slog.String("error", err.Error()))
		} else if hit {
			return result
		}
	}

	start := time.Now()
	records, err := load(ctx)
	if err != nil {
		a.logger.Error("aggregation load failed, returning empty result",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return Result{}
	}

	result := Reduce(records)

	if elapsed := time.Since(start); elapsed > SlowAggregationThreshold {
		a.logger.Warn("slow aggregation",
			slog.String("key", key),
			slog.Int64("elapsed_ms", elapsed.Milliseconds()),
			slog.Int("records", len(records)))
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, key, result, CacheTTL); err != nil {
			a.logger.Warn("cache write failed",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
	}
	return result
}

// Reduce computes the statistical summary of a feedback set. Counts and
// the average cover only records with an extractable rating; total covers
// every record.
func Reduce(records []feedback.Record) Result {
	result := Result{
		TotalFeedback: len(records),
	}

	var sum int
	var rated int
	for _, rec := range records {
		if !rec.HasRating() {
			continue
		}
		rated++
		sum += rec.Rating
		if rec.Rating >= PositiveRating {
			result.PositiveCount++
		} else {
			result.NegativeCount++
		}

		for category, subRating := range rec.Categories {
			if result.CategoryBreakdown == nil {
				result.CategoryBreakdown = make(map[string]CategoryStats)
			}
			stats := result.CategoryBreakdown[category]
			stats.Total++
			if subRating >= PositiveRating {
				stats.Positive++
			} else {
				stats.Negative++
			}
			// Average accumulates in Average until the final pass below.
			stats.Average += float64(subRating)
			result.CategoryBreakdown[category] = stats
		}
	}

	if rated > 0 {
		result.AverageRating = float64(sum) / float64(rated)
	}
	for category, stats := range result.CategoryBreakdown {
		stats.Average /= float64(stats.Total)
		result.CategoryBreakdown[category] = stats
	}

	result.HasMinimumThreshold = result.TotalFeedback >= MinimumThreshold
	return result
}
