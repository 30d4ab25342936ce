package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/clock"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/database"
	"github.com/stemsi/exstem-assessment/internal/handler"
	"github.com/stemsi/exstem-assessment/internal/logger"
	"github.com/stemsi/exstem-assessment/internal/repository"
	"github.com/stemsi/exstem-assessment/internal/router"
	"github.com/stemsi/exstem-assessment/internal/service"
	"github.com/stemsi/exstem-assessment/internal/validator"
	"github.com/stemsi/exstem-assessment/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("store", cfg.StoreDriver).
		Str("log_level", cfg.LogLevel).
		Msg("Starting assessment engine")

	// ─── Initialize Validator ──────────────────────────────────────────
	if err := validator.Setup(); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up request validation")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	health := database.NewHealthChecker()
	health.AddPinger("postgres", pool)
	health.Add("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })

	// ─── Initialize Repositories ───────────────────────────────────────
	assessmentRepo := repository.NewAssessmentRepository(pool)
	incidentRepo := repository.NewIncidentRepository(pool)

	var sessionStore service.SessionStore
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn().Msg("Using in-memory session store; sessions are lost on restart")
		sessionStore = repository.NewMemorySessionStore()
	default:
		sessionStore = repository.NewSessionRepository(pool)
	}

	// ─── Initialize Services ──────────────────────────────────────────
	clk := clock.System{}
	authService := service.NewAuthService(cfg)
	contentService := service.NewContentService(assessmentRepo, rdb, cfg.ContentCacheTTL, log)
	eventBus := service.NewRedisEventBus(rdb, clk, cfg.CertificateServiceURL != "")

	sessionService := service.NewSessionService(sessionStore, contentService, clk, eventBus, service.SessionOptions{
		ReviewViolationThreshold: cfg.ReviewViolationThreshold,
		MaxRetries:               cfg.MutationMaxRetries,
	}, log)
	reaper := service.NewReaper(sessionService)
	analyticsService := service.NewAnalyticsService(sessionStore, contentService, reaper, cfg.ReviewViolationThreshold, log)
	monitorService := service.NewMonitorService(sessionStore, contentService, incidentRepo, reaper, clk, cfg.ReviewViolationThreshold, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Session: handler.NewSessionHandler(sessionService),
		Public:  handler.NewPublicHandler(sessionService, contentService, authService),
		Admin:   handler.NewAdminHandler(sessionService, reaper, analyticsService, contentService),
		Monitor: handler.NewMonitorHandler(rdb, monitorService),
		WS:      handler.NewWSHandler(sessionService, cfg.AllowedOrigins),
		System:  handler.NewSystemHandler(health, rdb),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	incidentWorker := worker.NewIncidentWorker(incidentRepo, rdb, log)
	workers.Add(1)
	go func() {
		defer workers.Done()
		incidentWorker.Start(workerCtx)
	}()

	if cfg.CertificateServiceURL != "" {
		certificateWorker := worker.NewCertificateWorker(sessionStore, rdb, cfg.CertificateServiceURL, cfg.CertificateTimeout, log)
		workers.Add(1)
		go func() {
			defer workers.Done()
			certificateWorker.Start(workerCtx)
		}()
	} else {
		log.Info().Msg("CERTIFICATE_SERVICE_URL not set; certificate issuance disabled")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, authService, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for buffered incidents to flush.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
