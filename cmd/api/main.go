package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"filevault/internal/cache"
	"filevault/internal/config"
	"filevault/internal/database"
	"filevault/internal/handlers"
	"filevault/internal/jobs"
	"filevault/internal/log"
	"filevault/internal/mail"
	"filevault/internal/middleware"
	"filevault/internal/repository"
	"filevault/internal/security"
	"filevault/internal/server"
	"filevault/internal/service"
	"filevault/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres, "filevault-api")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure bucket failed")
	}

	users := repository.NewUserRepository(dbPool)
	files := repository.NewFileRepository(dbPool)
	txManager := database.NewTxManager(dbPool)

	tokens := security.NewTokenIssuer(
		cfg.Security.JWTAccessSecret,
		cfg.Security.JWTRefreshSecret,
		cfg.Security.JWTAccessTTL,
		cfg.Security.JWTRefreshTTL,
	)
	resets := security.NewResetTokens(cfg.Security.ResetTokenSecret, cfg.Security.ResetTokenTimeout)
	mailer := mail.NewQueueSender(redisClient, cfg.Mail.Stream)

	authService := service.NewAuthService(users, tokens, resets, mailer, cfg, logger)
	fileService := service.NewFileService(txManager, users, files, objectStore, cfg, logger)

	checks := map[string]handlers.HealthCheck{
		"database": dbPool.Ping,
		"redis": func(ctx context.Context) error {
			return cache.Ping(ctx, redisClient)
		},
		"storage": objectStore.Ping,
	}

	handlerSet := handlers.NewHandlerSet(
		logger,
		cfg,
		authService,
		fileService,
		middleware.RateLimit(redisClient, cfg.RateLimit, logger),
		checks,
	)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(redisClient, cfg.Jobs, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop()

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
