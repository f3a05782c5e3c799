package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aydinemre/menubot-backend/internal/outbound"
	"github.com/aydinemre/menubot-backend/pkg/config"
	"github.com/aydinemre/menubot-backend/pkg/db"
	"github.com/aydinemre/menubot-backend/pkg/logger"
	"github.com/aydinemre/menubot-backend/pkg/metrics"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "outbound-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "outbound-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	convMetrics := metrics.NewConversationMetrics(prometheus.NewRegistry())

	worker, err := outbound.NewWorker(
		outbound.NewRepository(dbClient.DB()),
		outbound.NewWhatsAppTransport(cfg.Transport),
		cfg.Outbound,
		logg,
		convMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create outbound worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = logg.WithFields(ctx, map[string]any{
		"env":           cfg.App.Env,
		"batch_size":    cfg.Outbound.BatchSize,
		"poll_interval": cfg.Outbound.PollInterval.String(),
	})
	logg.Info(ctx, "starting outbound worker")

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbound worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "outbound worker shut down")
}
