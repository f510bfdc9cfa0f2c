package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"walletwatch/internal/amqp"
	"walletwatch/internal/config"
	applog "walletwatch/internal/log"
	"walletwatch/internal/notify/gmail"
	"walletwatch/internal/services"
	"walletwatch/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentScheduler,
	})
	applog.SetDefault(logger)

	logger.Info("Starting walletwatch-scheduler")

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

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	gateway, err := gmail.NewFromEnv(context.Background())
	if err != nil {
		logger.Error("Failed to initialize Gmail sender", "error", err)
		os.Exit(1)
	}

	scheduler := services.NewRecurrenceScheduler(repo, amqpClient)
	sweeper := services.NewBudgetSweeper(repo, gateway)
	reports := services.NewReportGenerator(repo, gateway, cfg.ReportConcurrency)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Scheduler configured",
		"recurrence_interval", cfg.RecurrenceSweepInterval,
		"budget_interval", cfg.BudgetSweepInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	// Run both sweeps once on startup to recover from downtime.
	runRecurrenceSweep(ctx, scheduler, time.Now())
	runBudgetSweep(ctx, sweeper, time.Now())

	recurrenceTicker := time.NewTicker(cfg.RecurrenceSweepInterval)
	defer recurrenceTicker.Stop()
	budgetTicker := time.NewTicker(cfg.BudgetSweepInterval)
	defer budgetTicker.Stop()

	// Check hourly whether the month rolled over; each new month gets
	// one report run covering the month that just ended.
	reportTicker := time.NewTicker(time.Hour)
	defer reportTicker.Stop()
	lastReportMonth := time.Now().UTC().Format("2006-01")

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-recurrenceTicker.C:
				runRecurrenceSweep(ctx, scheduler, now)
			case now := <-budgetTicker.C:
				runBudgetSweep(ctx, sweeper, now)
			case now := <-reportTicker.C:
				month := now.UTC().Format("2006-01")
				if month == lastReportMonth {
					continue
				}
				lastReportMonth = month
				if sent, err := reports.GenerateAll(ctx, now); err != nil {
					slog.ErrorContext(ctx, "Monthly report run failed", "error", err)
				} else {
					slog.InfoContext(ctx, "Monthly report run finished", "reports_sent", sent)
				}
			}
		}
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

	logger.Info("Shutting down walletwatch-scheduler...")
	cancel()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	case <-time.After(2 * time.Second):
		logger.Info("Scheduler shutdown complete")
	}
}

func runRecurrenceSweep(ctx context.Context, scheduler *services.RecurrenceScheduler, now time.Time) {
	if emitted, err := scheduler.SweepDue(ctx, now); err != nil {
		slog.ErrorContext(ctx, "Recurrence sweep failed", "error", err, "emitted", emitted)
	} else {
		slog.InfoContext(ctx, "Recurrence sweep finished", "emitted", emitted)
	}
}

func runBudgetSweep(ctx context.Context, sweeper *services.BudgetSweeper, now time.Time) {
	if sent, err := sweeper.Sweep(ctx, now); err != nil {
		slog.ErrorContext(ctx, "Budget sweep failed", "error", err)
	} else {
		slog.InfoContext(ctx, "Budget sweep finished", "alerts_sent", sent)
	}
}
