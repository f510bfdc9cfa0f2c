package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"walletwatch/internal/amqp"
	"walletwatch/internal/config"
	applog "walletwatch/internal/log"
	"walletwatch/internal/services"
	"walletwatch/internal/storage"
	"walletwatch/internal/throttle"
	"walletwatch/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting walletwatch-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	limiter := throttle.NewLimiter(throttle.Config{
		EventsPerMinute: cfg.EventsPerUserPerMinute,
		CleanupInterval: 5 * time.Minute,
		RetryDelay:      time.Second,
	})
	defer limiter.Stop()

	processor := services.NewRecurrenceProcessor(repo)
	eventWorker := worker.NewEventWorker(processor, limiter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Worker configured",
		"queue", cfg.AMQPQueue,
		"events_per_user_per_minute", cfg.EventsPerUserPerMinute,
		"sqlite_db", cfg.SQLiteDBPath)

	go func() {
		err := amqp.ConsumeWithReconnect(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, eventWorker.HandleRecurrenceEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Event consumption failed", "error", err)
		}
		cancel()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down walletwatch-worker...")
	cancel()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	case <-time.After(5 * time.Second):
		logger.Info("Worker shutdown complete")
	}
}
