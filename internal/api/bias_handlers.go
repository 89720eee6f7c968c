package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/bias"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/middleware"
)

// BiasHandlers holds dependencies for bias monitoring HTTP handlers.
type BiasHandlers struct {
	monitor *bias.Monitor
}

// NewBiasHandlers creates a new BiasHandlers instance.
func NewBiasHandlers(monitor *bias.Monitor) *BiasHandlers {
	return &BiasHandlers{monitor: monitor}
}

// GetUserReport handles GET /bias/users/{user_id} - detects bias
// conditions for one user.
func (h *BiasHandlers) GetUserReport(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimPrefix(r.URL.Path, "/bias/users/")
	if userID == "" || strings.Contains(userID, "/") {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "User ID is required")
		return
	}

	report, err := h.monitor.DetectUserBias(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "bias detection failed", "user_id", userID, "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to detect bias")
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, report)
}

// Scan handles GET /bias/scan - runs the system-wide bias scan and
// returns only the flagged users.
func (h *BiasHandlers) Scan(w http.ResponseWriter, r *http.Request) {
	reports := h.monitor.RunSystemScan(r.Context())
	if reports == nil {
		reports = []*bias.Report{}
	}

	WriteJSON(w, r.Context(), http.StatusOK, map[string]any{
		"flagged": len(reports),
		"reports": reports,
	})
}

// Summary handles GET /bias/summary - returns system-wide bias statistics.
func (h *BiasHandlers) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.monitor.SummaryStats(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "bias summary failed", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to compute bias summary")
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, summary)
}
