package api

import (
	"log/slog"
	"net/http"

	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/middleware"
)

// RouterConfig holds the handler groups and optional per-route middleware
// the router wires together.
type RouterConfig struct {
	Feedback   *FeedbackHandlers
	Trust      *TrustHandlers
	Aggregates *AggregateHandlers
	Ranking    *RankingHandlers
	Bias       *BiasHandlers
	Validation *ValidationHandlers
	Health     *HealthHandlers

	// Metrics is the Prometheus scrape handler (promhttp). Optional.
	Metrics http.Handler

	// SubmitLimiter rate limits the feedback submission route. Optional.
	SubmitLimiter func(http.Handler) http.Handler

	// RankLimiter rate limits the ranking routes. Optional.
	RankLimiter func(http.Handler) http.Handler
}

// NewRouter builds the HTTP route table for the API server.
func NewRouter(cfg RouterConfig) *http.ServeMux {
	mux := http.NewServeMux()

	wrap := func(limiter func(http.Handler) http.Handler, h http.HandlerFunc) http.Handler {
		if limiter == nil {
			return h
		}
		return limiter(h)
	}

	// Feedback submission and per-user history. The bare path takes
	// submissions, the suffixed path reads history.
	mux.Handle("/feedback", wrap(cfg.SubmitLimiter, cfg.Feedback.Submit))
	mux.HandleFunc("/feedback/", cfg.Feedback.ListByUser)

	// Trust scores and learned category weights.
	mux.HandleFunc("/trust/", cfg.Trust.GetTrustScore)
	mux.HandleFunc("/weights/", cfg.Trust.GetWeights)

	// Weighted aggregate views.
	mux.HandleFunc("/aggregates/", cfg.Aggregates.Get)

	// Ranking policies.
	mux.Handle("/rank/trips", wrap(cfg.RankLimiter, cfg.Ranking.RankTrips))
	mux.Handle("/rank/adjusted", wrap(cfg.RankLimiter, cfg.Ranking.Adjust))

	// Bias monitoring.
	mux.HandleFunc("/bias/users/", cfg.Bias.GetUserReport)
	mux.HandleFunc("/bias/scan", cfg.Bias.Scan)
	mux.HandleFunc("/bias/summary", cfg.Bias.Summary)

	// Aggregation validation.
	mux.HandleFunc("/validation/users/", cfg.Validation.GetUserReport)
	mux.HandleFunc("/validation/system", cfg.Validation.GetSystemReport)

	// Probes and metrics.
	mux.HandleFunc("/health", cfg.Health.Health)
	mux.HandleFunc("/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}

	// Service info at the exact root, structured 404 everywhere else.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"roamceylon-trust-api","version":"0.1.0"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	return mux
}
