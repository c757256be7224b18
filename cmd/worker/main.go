package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"filevault/internal/cache"
	"filevault/internal/config"
	"filevault/internal/database"
	"filevault/internal/log"
	"filevault/internal/mail"
	"filevault/internal/queue"
	"filevault/internal/repository"
	"filevault/internal/tasks"
)

func main() {
	cfg, err := config.LoadWorker()
	if err != nil {
		panic(err)
	}

	logger := log.NewWorker(cfg.Environment, cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres, "filevault-worker")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer dbPool.Close()

	client, err := cache.NewRedisClient(ctx, cfg.Redis.RedisConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	processor := tasks.NewProcessor(
		mail.NewSMTPSender(cfg.SMTP, cfg.Mail.From),
		repository.NewUserRepository(dbPool),
		logger,
	)
	consumer := queue.NewConsumer(client, queue.Options{
		Streams:       cfg.Streams(),
		Group:         cfg.Redis.Group,
		Consumer:      cfg.Redis.Consumer,
		ClaimInterval: cfg.Queues.ClaimInterval,
		BatchSize:     cfg.Queues.BatchSize,
	}, logger, processor)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("consumer stopped unexpectedly")
			stop()
		}
	}()

	logger.Info().Strs("streams", cfg.Streams()).Msg("worker started")
	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn().Msg("consumer did not stop in time")
	}
}
