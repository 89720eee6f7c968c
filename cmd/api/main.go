// Package main is the entry point for the trust and ranking API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/affinity"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/aggregate"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/api"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/bias"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/cache"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/config"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/db"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/engine"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/feedback"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/health"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/jobs"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/middleware"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/ranking"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/stats"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/tracing"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/trust"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/validation"
)

const serviceName = "roamceylon-trust-api"

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	if *help {
		fmt.Println("RoamCeylon Trust & Ranking API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	ctx := context.Background()

	// Tracing
	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  serviceName,
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporter,
		OTLPEndpoint: cfg.TracingEndpoint,
		SamplingRate: 1.0,
		InsecureMode: cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down tracer provider", "error", err)
		}
	}()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	middlewareMetrics := middleware.NewMetrics()
	engineMetrics := engine.NewMetrics()
	trustMetrics := trust.NewMetrics()
	jobMetrics := jobs.NewMetrics()
	for _, register := range []func(prometheus.Registerer) error{
		middlewareMetrics.Register,
		engineMetrics.Register,
		trustMetrics.Register,
		jobMetrics.Register,
	} {
		if err := register(registry); err != nil {
			logger.Error("failed to register metrics", "error", err)
			os.Exit(1)
		}
	}

	upsertStats := stats.NewUpsertStats()
	defer upsertStats.LogSummary(logger, "feedback")

	// Postgres
	conn, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	// Redis is optional. Without it the aggregate cache runs in-process
	// and rate limiting falls back to per-instance counters.
	var (
		aggregateCache cache.Cache
		limitStore     middleware.RateLimitStore
		redisChecker   api.HealthChecker
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		aggregateCache = cache.NewRedisFromClient(redisClient, logger)
		limitStore = middleware.NewRedisRateLimitStore(redisClient).WithMetrics(middlewareMetrics)
		redisChecker = health.NewRedisChecker(redisClient)
		logger.Info("redis connected", "addr", cfg.RedisAddr)
	} else {
		aggregateCache = cache.NewInMemory()
		limitStore = middleware.NewInMemoryRateLimitStore()
		logger.Warn("redis not configured, using in-process cache and rate limits")
	}

	// Stores
	feedbackStore := feedback.NewPostgresStore(conn, logger).WithStats(upsertStats)
	trustStore := trust.NewPostgresStore(conn, logger)
	weightStore := affinity.NewPostgresStore(conn, logger)

	// Engine stack
	trustEngine := trust.NewEngine(feedbackStore, trustStore, logger, trustMetrics)
	learner := affinity.NewLearner(weightStore, logger)
	resolver := aggregate.NewPostgresResolver(conn, logger)
	aggregator := aggregate.NewAggregator(feedbackStore, resolver, aggregateCache, logger)
	service := engine.NewService(feedbackStore, trustEngine, learner, aggregator, logger, engineMetrics)

	rankConfig, err := ranking.LoadCalibration(cfg.CalibrationPath)
	if err != nil {
		logger.Warn("ranking calibration unavailable, using defaults", "error", err)
	}
	ranker := ranking.NewTrustRanker(trustEngine, learner, feedbackStore, rankConfig, logger)
	adjuster := ranking.NewFeedbackAdjuster(rankConfig)
	monitor := bias.NewMonitor(weightStore, trustStore, logger)
	validator := validation.NewValidator(feedbackStore, trustStore, logger)

	// Background aggregation audit
	auditJob := validation.NewAuditJob(validation.AuditJobConfig{
		Interval: cfg.AuditInterval,
		Logger:   logger,
		Metrics:  jobMetrics,
	}, validator)
	if err := auditJob.Start(ctx); err != nil {
		logger.Error("failed to start audit job", "error", err)
		os.Exit(1)
	}
	defer auditJob.Stop()

	// Routes
	mux := api.NewRouter(api.RouterConfig{
		Feedback:   api.NewFeedbackHandlers(service, feedbackStore),
		Trust:      api.NewTrustHandlers(trustStore, weightStore),
		Aggregates: api.NewAggregateHandlers(aggregator),
		Ranking: api.NewRankingHandlers(ranker, adjuster, aggregator).
			WithTrustRanking(cfg.RankTrustEnabled),
		Bias:       api.NewBiasHandlers(monitor),
		Validation: api.NewValidationHandlers(validator),
		Health: api.NewHealthHandlers(api.HealthHandlersConfig{
			DBChecker:    health.NewDBChecker(conn),
			RedisChecker: redisChecker,
		}),
		Metrics:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		SubmitLimiter: middleware.RateLimiter(limitStore, middleware.DefaultSubmitLimit(), middleware.UserKeyFunc()),
		RankLimiter:   middleware.RateLimiter(limitStore, middleware.DefaultRankLimit(), middleware.IPKeyFunc()),
	})

	// Middleware chain: CORS -> RequestID -> Tracing -> HTTPMetrics -> Logging
	handler := middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: cfg.AllowedOrigins,
	})(middleware.RequestID(
		middleware.Tracing(serviceName)(
			middleware.HTTPMetrics(middlewareMetrics)(
				middleware.Logging(logger)(mux)))))

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
