package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/engine"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/feedback"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/middleware"
)

// FeedbackHandlers holds dependencies for feedback HTTP handlers.
type FeedbackHandlers struct {
	service *engine.Service
	store   feedback.Store
}

// NewFeedbackHandlers creates a new FeedbackHandlers instance.
func NewFeedbackHandlers(service *engine.Service, store feedback.Store) *FeedbackHandlers {
	return &FeedbackHandlers{service: service, store: store}
}

// submitRequest is the wire form of a submission. Rating stays untyped
// so legacy payload shapes (bare number, numeric string, object with a
// "rating" field) can be normalized before the engine sees them.
type submitRequest struct {
	UserID     string         `json:"user_id"`
	EntityID   string         `json:"entity_id"`
	Rating     any            `json:"rating"`
	Categories map[string]int `json:"categories,omitempty"`
}

// Submit handles POST /feedback - runs the full submission pipeline.
func (h *FeedbackHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body")
		return
	}

	rating, ok := feedback.NormalizeRating(req.Rating)
	if !ok {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Rating must be numeric")
		return
	}
	sub := engine.Submission{
		UserID:     req.UserID,
		EntityID:   req.EntityID,
		Rating:     rating,
		Categories: req.Categories,
	}

	// Attribute the request for access logs.
	r = r.WithContext(middleware.SetUserID(r.Context(), sub.UserID))

	result, err := h.service.ProcessFeedback(r.Context(), sub)
	if err != nil {
		if engine.IsInputError(err) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "feedback submission failed",
			"user_id", sub.UserID, "entity_id", sub.EntityID, "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeDependency)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeDependency, "Failed to process feedback")
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, result)
}

// ListByUser handles GET /feedback/{user_id} - returns a user's feedback records.
func (h *FeedbackHandlers) ListByUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	userID := strings.TrimPrefix(r.URL.Path, "/feedback/")
	if userID == "" || strings.Contains(userID, "/") {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "User ID is required")
		return
	}

	records, err := h.store.ListByUser(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list feedback", "user_id", userID, "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list feedback")
		return
	}
	if records == nil {
		records = []feedback.Record{}
	}

	WriteJSON(w, r.Context(), http.StatusOK, map[string]any{
		"user_id": userID,
		"records": records,
	})
}
