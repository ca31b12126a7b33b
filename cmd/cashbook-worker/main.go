package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cashbook/internal/amqp"
	"cashbook/internal/config"
	applog "cashbook/internal/log"
	gsheet "cashbook/internal/sheets/google"
	"cashbook/internal/storage"
	"cashbook/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent("worker")
	applog.SetDefault(logger)

	logger.Info("Starting cashbook-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if !cfg.SheetsMirrorEnabled() {
		logger.Error("No spreadsheet configured, nothing to mirror; set GOOGLE_SPREADSHEET_ID")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	mirror, err := gsheet.New(context.Background(), gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
		CredentialsFile: cfg.GoogleCredentialsFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	syncWorker := worker.NewSyncWorker(repo, mirror, cfg.SyncBatchSize)

	// On startup, push everything once to recover from missed messages.
	logger.Info("Performing startup resync...")
	if err := syncWorker.ResyncAll(ctx); err != nil {
		logger.Error("Startup resync failed", "error", err)
		// Keep going; the consumer and periodic resync pick up from here.
	}

	go func() {
		if err := amqpClient.ConsumeEntrySync(ctx, syncWorker.HandleMessage); err != nil {
			if err != context.Canceled {
				logger.Error("Message consumption failed", "error", err)
			}
			cancel()
		}
	}()

	go syncWorker.RunPeriodicResync(ctx, cfg.SyncInterval)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down worker...")
	cancel()

	// Give in-flight handlers a moment to finish.
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}
