package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/affinity"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/middleware"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/trust"
)

// TrustScoreResponse represents the response for the trust score endpoint.
type TrustScoreResponse struct {
	UserID      string  `json:"user_id"`
	TrustScore  float64 `json:"trust_score"`
	Tracked     bool    `json:"tracked"`
	Version     int64   `json:"version,omitempty"`
	LastUpdated string  `json:"last_updated,omitempty"`
}

// WeightsResponse represents the response for the category weights endpoint.
type WeightsResponse struct {
	UserID  string                    `json:"user_id"`
	Weights []affinity.CategoryWeight `json:"weights"`
}

// TrustHandlers holds dependencies for trust and affinity HTTP handlers.
type TrustHandlers struct {
	trustStore  trust.Store
	weightStore affinity.Store
}

// NewTrustHandlers creates a new TrustHandlers instance.
func NewTrustHandlers(trustStore trust.Store, weightStore affinity.Store) *TrustHandlers {
	return &TrustHandlers{trustStore: trustStore, weightStore: weightStore}
}

// GetTrustScore handles GET /trust/{user_id} - retrieves the stored trust
// score. Users with no signal yet report the neutral score, untracked.
func (h *TrustHandlers) GetTrustScore(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimPrefix(r.URL.Path, "/trust/")
	if userID == "" || strings.Contains(userID, "/") {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "User ID is required")
		return
	}

	sig, err := h.trustStore.Get(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to retrieve trust score", "user_id", userID, "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve trust score")
		return
	}

	response := TrustScoreResponse{
		UserID:     userID,
		TrustScore: trust.NeutralScore,
	}
	if sig != nil {
		response.TrustScore = sig.Score
		response.Tracked = true
		response.Version = sig.Version
		response.LastUpdated = sig.UpdatedAt.UTC().Format(time.RFC3339)
	}

	WriteJSON(w, r.Context(), http.StatusOK, response)
}

// GetWeights handles GET /weights/{user_id} - retrieves learned category weights.
func (h *TrustHandlers) GetWeights(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimPrefix(r.URL.Path, "/weights/")
	if userID == "" || strings.Contains(userID, "/") {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "User ID is required")
		return
	}

	weights, err := h.weightStore.ListByUser(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to retrieve category weights", "user_id", userID, "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve category weights")
		return
	}
	if weights == nil {
		weights = []affinity.CategoryWeight{}
	}

	WriteJSON(w, r.Context(), http.StatusOK, WeightsResponse{UserID: userID, Weights: weights})
}
