package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/middleware"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/validation"
)

// ValidationHandlers holds dependencies for aggregation audit HTTP handlers.
type ValidationHandlers struct {
	validator *validation.Validator
}

// NewValidationHandlers creates a new ValidationHandlers instance.
func NewValidationHandlers(validator *validation.Validator) *ValidationHandlers {
	return &ValidationHandlers{validator: validator}
}

// GetUserReport handles GET /validation/users/{user_id} - audits one
// user's feedback and trust state.
func (h *ValidationHandlers) GetUserReport(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimPrefix(r.URL.Path, "/validation/users/")
	if userID == "" || strings.Contains(userID, "/") {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "User ID is required")
		return
	}

	report, err := h.validator.ValidateUser(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "user validation failed", "user_id", userID, "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to validate user")
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, report)
}

// GetSystemReport handles GET /validation/system - runs the system-wide
// aggregation audit. Failures degrade to an empty report, so this always
// returns 200 with whatever could be checked.
func (h *ValidationHandlers) GetSystemReport(w http.ResponseWriter, r *http.Request) {
	report := h.validator.ValidateSystem(r.Context())
	WriteJSON(w, r.Context(), http.StatusOK, report)
}
