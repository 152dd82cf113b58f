package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/echomed/echobank-backend/internal/config"
	"github.com/echomed/echobank-backend/internal/database"
	"github.com/echomed/echobank-backend/internal/handler"
	"github.com/echomed/echobank-backend/internal/logger"
	"github.com/echomed/echobank-backend/internal/repository"
	"github.com/echomed/echobank-backend/internal/router"
	"github.com/echomed/echobank-backend/internal/service"
	"github.com/echomed/echobank-backend/internal/storage"
	"github.com/echomed/echobank-backend/internal/validator"
	"github.com/echomed/echobank-backend/internal/worker"
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
		Msg("Starting EchoBank Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	db, err := database.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer db.Close()

	// ─── Run Migrations ────────────────────────────────────────────────
	migrator := database.NewMigrator(db, cfg.MigrationsDir, log)
	if cfg.DBInitSchema {
		if err := migrator.InitSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("Schema init failed")
		}
	}
	if err := migrator.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Migrations failed")
	}

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Object Storage ─────────────────────────────────────
	var objects *storage.Service
	if cfg.MinioEndpoint != "" {
		provider, err := storage.NewMinioProvider(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to MinIO")
		}
		objects = storage.NewService(provider, cfg.MaxUploadBytes, true)
		log.Info().Str("endpoint", cfg.MinioEndpoint).Str("bucket", cfg.MinioBucket).Msg("Object storage ready")
	} else {
		objects = storage.NewService(&storage.LocalProvider{Dir: cfg.UploadDir}, cfg.MaxUploadBytes, false)
		log.Info().Str("dir", cfg.UploadDir).Msg("Using local upload storage")
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	questionRepo := repository.NewQuestionRepository(db)
	imageRepo := repository.NewImageRepository(db)
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	batchRepo := repository.NewBatchRepository(db)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	userService := service.NewUserService(userRepo, tokenRepo, authService, log)
	imageService := service.NewImageService(imageRepo, objects, userRepo, rdb, cfg.ContributorQuota, log)
	// The image service doubles as the contribution-quota charger so
	// uploads and image descriptions draw from one counter.
	questionService := service.NewQuestionService(questionRepo, imageService, log)
	importService := service.NewImportService(batchRepo, questionService, log)

	var classifier service.Classifier
	if cfg.Classifier == "gemini" {
		classifier, err = service.NewGeminiClassifier(ctx, cfg.GeminiAPIKey, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Gemini classifier")
		}
	} else {
		classifier = service.NewKeywordClassifier()
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:     handler.NewAuthHandler(userService),
		Question: handler.NewQuestionHandler(questionService, userService),
		Image:    handler.NewImageHandler(imageService, userService),
		Batch:    handler.NewBatchHandler(importService, batchRepo),
		User:     handler.NewUserHandler(userService, cfg),
		Classify: handler.NewClassifyHandler(classifier),
		System:   handler.NewSystemHandler(db),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	tokenSweeper := worker.NewTokenSweeper(tokenRepo, log)
	batchReconciler := worker.NewBatchReconciler(batchRepo, log)

	go tokenSweeper.Start(workerCtx)
	go batchReconciler.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
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

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	workerCancel()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
