package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/neexbeast/skywatch/internal/api"
	"github.com/neexbeast/skywatch/internal/config"
	"github.com/neexbeast/skywatch/internal/metrics"
	"github.com/neexbeast/skywatch/internal/server"
	"github.com/neexbeast/skywatch/internal/storage"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", string(config.ServiceStorage))

	if err := run(log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load(config.ServiceStorage)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := storage.Connect(ctx, cfg.DatabaseURL, cfg.Upstream.ConnectTimeout)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if cfg.StorageToken == "" {
		log.Warn("STORAGE_API_TOKEN not set; data routes are unauthenticated")
	}

	opts := api.RouterOptions{
		Service: string(cfg.Service),
		Version: cfg.Version,
		Token:   cfg.StorageToken,
		Log:     log,
	}
	if cfg.MetricsEnabled {
		opts.Metrics = metrics.New(string(cfg.Service))
	}

	handlers := api.NewStorageHandlers(storage.NewStore(pool), cfg.QueryTimeout, log)
	router := api.NewStorageRouter(handlers, pool, opts)

	return server.Run(ctx, log, ":"+cfg.Port, router)
}
