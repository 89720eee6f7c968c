package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"

	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/aggregate"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/middleware"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/ranking"
)

// RankRequest is the body for POST /rank/trips.
type RankRequest struct {
	UserID string         `json:"user_id"`
	Trips  []ranking.Trip `json:"trips"`
}

// RankResponse is the ranked candidate list for one user.
type RankResponse struct {
	UserID string               `json:"user_id"`
	Trips  []ranking.ScoredTrip `json:"trips"`
}

// AdjustRequest is the body for POST /rank/adjusted.
type AdjustRequest struct {
	EntityID  string  `json:"entity_id"`
	BaseScore float64 `json:"base_score"`
}

// AdjustResponse carries the community-feedback adjustment for an entity.
type AdjustResponse struct {
	EntityID   string             `json:"entity_id"`
	BaseScore  float64            `json:"base_score"`
	Adjustment ranking.Adjustment `json:"adjustment"`
}

// RankingHandlers holds dependencies for ranking HTTP handlers.
type RankingHandlers struct {
	ranker        *ranking.TrustRanker
	adjuster      *ranking.FeedbackAdjuster
	aggregator    *aggregate.Aggregator
	trustDisabled bool
}

// NewRankingHandlers creates a new RankingHandlers instance.
func NewRankingHandlers(ranker *ranking.TrustRanker, adjuster *ranking.FeedbackAdjuster, aggregator *aggregate.Aggregator) *RankingHandlers {
	return &RankingHandlers{ranker: ranker, adjuster: adjuster, aggregator: aggregator}
}

// WithTrustRanking toggles the trust-weighted policy. When disabled,
// RankTrips returns candidates ordered by base score with neutral
// components, which lets operators bypass personalization without
// removing the endpoint.
func (h *RankingHandlers) WithTrustRanking(enabled bool) *RankingHandlers {
	h.trustDisabled = !enabled
	return h
}

// RankTrips handles POST /rank/trips - applies the personalized
// trust-weighted policy to a candidate list.
func (h *RankingHandlers) RankTrips(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var req RankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body")
		return
	}
	if req.UserID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "user_id is required")
		return
	}

	r = r.WithContext(middleware.SetUserID(r.Context(), req.UserID))

	if h.trustDisabled {
		WriteJSON(w, r.Context(), http.StatusOK, RankResponse{
			UserID: req.UserID,
			Trips:  neutralOrder(req.Trips),
		})
		return
	}

	scored, err := h.ranker.RankTrips(r.Context(), req.UserID, req.Trips)
	if err != nil {
		slog.ErrorContext(r.Context(), "trip ranking failed", "user_id", req.UserID, "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to rank trips")
		return
	}
	if scored == nil {
		scored = []ranking.ScoredTrip{}
	}

	WriteJSON(w, r.Context(), http.StatusOK, RankResponse{UserID: req.UserID, Trips: scored})
}

// neutralOrder scores candidates by base score alone, preserving input
// order on ties.
func neutralOrder(trips []ranking.Trip) []ranking.ScoredTrip {
	scored := make([]ranking.ScoredTrip, 0, len(trips))
	for _, trip := range trips {
		scored = append(scored, ranking.ScoredTrip{
			Trip:            trip,
			FinalScore:      trip.BaseScore,
			TrustMultiplier: 1,
			CategoryWeight:  1,
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].FinalScore > scored[j].FinalScore
	})
	return scored
}

// Adjust handles POST /rank/adjusted - applies the additive community
// feedback policy to one entity's base score.
func (h *RankingHandlers) Adjust(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var req AdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body")
		return
	}
	if req.EntityID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "entity_id is required")
		return
	}

	agg := h.aggregator.ByEntity(r.Context(), req.EntityID)
	adjustment := h.adjuster.Apply(req.BaseScore, agg)

	WriteJSON(w, r.Context(), http.StatusOK, AdjustResponse{
		EntityID:   req.EntityID,
		BaseScore:  req.BaseScore,
		Adjustment: adjustment,
	})
}
