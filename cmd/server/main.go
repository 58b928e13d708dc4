package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stemsi/gateprep-backend/internal/config"
	"github.com/stemsi/gateprep-backend/internal/database"
	"github.com/stemsi/gateprep-backend/internal/handler"
	"github.com/stemsi/gateprep-backend/internal/logger"
	"github.com/stemsi/gateprep-backend/internal/middleware"
	"github.com/stemsi/gateprep-backend/internal/repository"
	"github.com/stemsi/gateprep-backend/internal/router"
	"github.com/stemsi/gateprep-backend/internal/service"
	"github.com/stemsi/gateprep-backend/internal/validator"
	"github.com/stemsi/gateprep-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting GATE Prep Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

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

	if cfg.AutoMigrate {
		if err := database.MigrateUp(cfg.MigrationsDir, cfg.DatabaseURL, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	mockTestRepo := repository.NewMockTestRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)
	answerRepo := repository.NewAnswerRepository(pool)
	leaderboardRepo := repository.NewLeaderboardRepository(pool)
	subjectRepo := repository.NewSubjectRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	mockTestService := service.NewMockTestService(mockTestRepo, questionRepo, attemptRepo, subjectRepo, rdb, cfg, log)
	leaderboardService := service.NewLeaderboardService(attemptRepo, leaderboardRepo, rdb, cfg, log)
	analyticsService := service.NewAnalyticsService(attemptRepo, mockTestRepo, log)
	attemptService := service.NewAttemptService(
		attemptRepo, questionRepo, submissionRepo, answerRepo,
		mockTestService, leaderboardService, rdb, cfg, log,
	)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Health: handler.NewHealthHandler(map[string]database.HealthCheck{
			"postgres": database.PostgresCheck(pool),
			"redis":    database.RedisCheck(rdb),
		}),
		MockTest:    handler.NewMockTestHandler(mockTestService),
		Attempt:     handler.NewAttemptHandler(attemptService),
		Leaderboard: handler.NewLeaderboardHandler(leaderboardService),
		Analytics:   handler.NewAnalyticsHandler(analyticsService),
		WS:          handler.NewWSHandler(attemptService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workersDone := make(chan struct{})

	rankWorker := worker.NewRankWorker(rdb, leaderboardService, cfg.RankRefreshInterval, log)
	submitLimiter := middleware.NewRateLimiter(cfg.SubmitRateLimit, time.Minute)

	go func() {
		rankWorker.Start(workerCtx)
		close(workersDone)
	}()
	go submitLimiter.RunCleanup(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, submitLimiter, cfg, log)

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

	// 2. Stop background workers.
	workerCancel()
	select {
	case <-workersDone:
	case <-time.After(3 * time.Second):
		log.Warn().Msg("Rank worker did not stop in time")
	}

	log.Info().Msg("Shutdown complete")
}
