package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"kakeibo/internal/amqp"
	"kakeibo/internal/config"
	"kakeibo/internal/export/google"
	applog "kakeibo/internal/log"
	"kakeibo/internal/storage"
	"kakeibo/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     applog.DefaultConfig().Level,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	if !cfg.ExportEnabled {
		logger.Error("export disabled, set GOOGLE_SPREADSHEET_ID to run the worker")
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("failed to initialize storage", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exporter, err := google.New(ctx, google.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsFile: cfg.GoogleCredentialsFile,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
	})
	if err != nil {
		logger.Error("failed to initialize sheets client", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("sheets client initialized", applog.FieldSheetID, cfg.GoogleSpreadsheetID)

	exportWorker := worker.NewExportWorker(repo, exporter, cfg.ExportBatchSize, logger)

	// catch up on anything missed while the worker was down
	if err := exportWorker.ProcessPending(ctx); err != nil {
		logger.Error("startup sweep failed", applog.FieldError, err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		g.Go(func() error {
			err := amqpClient.ConsumeExpenseEvents(ctx, func(msg *amqp.ExpenseEvent) error {
				return exportWorker.HandleEvent(ctx, msg)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled, relying on the periodic sweep only")
	}

	g.Go(func() error {
		err := exportWorker.Run(ctx, cfg.ExportInterval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	logger.Info("worker started",
		applog.FieldQueue, cfg.AMQPQueue,
		"interval", cfg.ExportInterval)

	if err := g.Wait(); err != nil {
		logger.Error("worker error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
