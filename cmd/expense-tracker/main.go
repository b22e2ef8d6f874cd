package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/backend"
	"expensetracker/internal/buildinfo"
	"expensetracker/internal/cache"
	"expensetracker/internal/classifier"
	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	apphttp "expensetracker/internal/http"
	"expensetracker/internal/log"
	"expensetracker/internal/session"
	"expensetracker/internal/store"
)

func main() {
	cli.LoadEnvFile()
	pre := config.Load()
	logger := cli.SetupLogger(pre.LogLevel, pre.LogFormat)
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting expense tracker",
		"version", buildinfo.String(),
		"port", cfg.Port,
		"backend", cfg.DataBackend)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Slog()).
		CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize expense store", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	mediator := store.NewMediator(res.Store)

	model := cli.LoadModel(logger, cfg.ModelPath)

	predictions := cache.NewLRUCache[string](cfg.PredictionCacheSize, cfg.PredictionCacheTTL)
	caches := cache.NewManager(logger.WithComponent(log.ComponentCache).Slog())
	caches.Register(predictions)
	caches.StartCleanup(cfg.PredictionCacheTTL)
	predictor := classifier.NewCachedPredictor(model, predictions)

	opts := []session.Option{
		session.WithLogger(logger.WithComponent(log.ComponentSession).Slog()),
	}
	var events *amqp.Client
	if cfg.AMQPURL != "" {
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// The mirror still reconciles on its ticker.
			logger.Warn("Store events disabled: AMQP unavailable", log.FieldError, err)
		} else {
			opts = append(opts, session.WithPublisher(events))
			logger.Info("Store events enabled", "exchange", cfg.AMQPExchange)
		}
	}
	sess := session.New(mediator, predictor, opts...)

	srv := apphttp.NewServer(":"+cfg.Port, sess, apphttp.Options{
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CacheStats:         predictions.Stats,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if events != nil {
			if err := events.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := res.Close(); err != nil {
			logger.Warn("Store close error", log.FieldError, err)
		}
	})

	logger.Info("Listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
