package api

import (
	"net/http"
	"strings"

	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/aggregate"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/middleware"
)

// AggregateHandlers holds dependencies for aggregation HTTP handlers.
type AggregateHandlers struct {
	aggregator *aggregate.Aggregator
}

// NewAggregateHandlers creates a new AggregateHandlers instance.
func NewAggregateHandlers(aggregator *aggregate.Aggregator) *AggregateHandlers {
	return &AggregateHandlers{aggregator: aggregator}
}

// Get handles GET /aggregates/{kind}/{id} where kind is one of trips,
// destinations or categories. Aggregates degrade to an empty result on
// backing store failures, so this endpoint never reports a store error.
func (h *AggregateHandlers) Get(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/aggregates/"), "/")
	if len(parts) != 2 || parts[1] == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Expected /aggregates/{kind}/{id}")
		return
	}
	kind, id := parts[0], parts[1]

	var result aggregate.Result
	switch kind {
	case "trips":
		result = h.aggregator.ByEntity(r.Context(), id)
	case "destinations":
		result = h.aggregator.ByDestination(r.Context(), id)
	case "categories":
		result = h.aggregator.ByCategory(r.Context(), id)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Unknown aggregate kind")
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, map[string]any{
		"kind":      kind,
		"id":        id,
		"aggregate": result,
	})
}
