package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"wallet/internal/amqp"
	"wallet/internal/cache"
	"wallet/internal/cli"
	"wallet/internal/config"
	"wallet/internal/log"
	"wallet/internal/sheets"
	gsheet "wallet/internal/sheets/google"
	"wallet/internal/sheets/memory"
	"wallet/internal/worker"
)

const cacheSweepInterval = 10 * time.Minute

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel).WithComponent(log.ComponentWorker)
	logger.Info("Starting wallet-worker", log.FieldOperation, log.OpStartup)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker", log.FieldErrorType, log.ErrorTypeConfiguration)
		return 1
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	rows, err := newRowWriter(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		return 1
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err, log.FieldErrorType, log.ErrorTypeNetwork)
		return 1
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(rows, worker.Options{RatePerSecond: cfg.SyncRateLimit}, logger)
	caches := cache.NewManager(logger)
	caches.Register(syncWorker.Seen())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeLedgerEvents(gctx, func(ctx context.Context, msg *amqp.LedgerEventMessage) error {
			err := syncWorker.HandleLedgerEvent(ctx, msg)
			if errors.Is(err, worker.ErrInvalidEvent) {
				// redelivery cannot fix it
				log.FromContext(ctx).WarnContext(ctx, "Dropping invalid ledger event", log.FieldError, err)
				return nil
			}
			return err
		})
	})
	g.Go(func() error {
		caches.Run(gctx, cacheSweepInterval)
		return nil
	})

	err = g.Wait()
	logger.Info("Worker shutdown complete", log.FieldOperation, log.OpShutdown)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		return 1
	}
	return 0
}

func newRowWriter(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.RowWriter, error) {
	if !cfg.SheetsEnabled {
		logger.Info("Google Sheets disabled, rows are kept in memory only")
		return memory.New(), nil
	}
	return gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
}
