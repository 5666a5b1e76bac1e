package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/neexbeast/skywatch/internal/aggregate"
	"github.com/neexbeast/skywatch/internal/api"
	"github.com/neexbeast/skywatch/internal/config"
	"github.com/neexbeast/skywatch/internal/hop"
	"github.com/neexbeast/skywatch/internal/metrics"
	"github.com/neexbeast/skywatch/internal/server"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", string(config.ServiceAggregator))

	if err := run(log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load(config.ServiceAggregator)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := api.RouterOptions{
		Service: string(cfg.Service),
		Version: cfg.Version,
		Log:     log,
	}
	hopOpts := hop.Options{
		Name:           string(config.ServiceStorage),
		BaseURL:        cfg.StorageAPIURL,
		ConnectTimeout: cfg.Upstream.ConnectTimeout,
		Timeout:        cfg.Upstream.Timeout,
		Retries:        cfg.Upstream.Retries,
		Token:          cfg.StorageToken,
	}
	if cfg.MetricsEnabled {
		opts.Metrics = metrics.New(string(cfg.Service))
		hopOpts.Observer = opts.Metrics
	}

	combiner := aggregate.NewService(hop.New(hopOpts), log)
	router := api.NewAggregatorRouter(api.NewAggregatorHandlers(combiner, cfg.DefaultLocation, log), opts)

	log.Info("upstream configured", "storage_api_url", cfg.StorageAPIURL)
	return server.Run(ctx, log, ":"+cfg.Port, router)
}
