package main

import (
	"context"
	"os"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/backend"
	"expensetracker/internal/buildinfo"
	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	"expensetracker/internal/log"
	"expensetracker/internal/sheets/google"
	"expensetracker/internal/store"
	"expensetracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat).WithComponent(log.ComponentWorker)

	if err := cfg.ValidateMirror(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.DataBackend == "memory" {
		logger.Error("The sheets mirror reads the tracker's store; set DATA_BACKEND to csv or sqlite")
		os.Exit(1)
	}

	logger.Info("Starting sheets mirror",
		"version", buildinfo.String(),
		"backend", cfg.DataBackend,
		"sheet", cfg.GoogleSheetName,
		"interval", cfg.MirrorInterval)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Slog()).
		CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to open expense store", log.FieldError, err)
		os.Exit(1)
	}
	defer res.Close()

	sheet, err := google.New(context.Background(), google.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}

	// A nil EventSource leaves the worker on its ticker alone.
	var events worker.EventSource
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		events = client
		logger.Info("Consuming store events", "queue", cfg.AMQPQueue)
	}

	mirror := worker.NewMirrorWorker(store.NewMediator(res.Store), sheet,
		logger.WithComponent(log.ComponentSheets).Slog())

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)
	if err := mirror.Run(ctx, events, cfg.MirrorInterval); err != nil {
		logger.Error("Mirror stopped", log.FieldError, err)
		os.Exit(1)
	}
	<-done

	stats := mirror.Stats()
	logger.Info("Sheets mirror stopped", "synced", stats.Synced, "failed", stats.Failed)
}
