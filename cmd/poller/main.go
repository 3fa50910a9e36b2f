// Command poller captures full order book depth for the most active
// markets on a fixed interval via the CLOB REST API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/quantfield/polymarket-data/internal/clob"
	"github.com/quantfield/polymarket-data/internal/config"
	"github.com/quantfield/polymarket-data/internal/database"
	"github.com/quantfield/polymarket-data/internal/gamma"
	"github.com/quantfield/polymarket-data/internal/metrics"
	"github.com/quantfield/polymarket-data/internal/poller"
	"github.com/quantfield/polymarket-data/internal/storage"
	"github.com/quantfield/polymarket-data/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/poller.local.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	logger.Info("starting poller",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := storage.New(pool, logger)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	logger.Info("database connected")

	directory := gamma.NewClient(
		cfg.API.GammaURL,
		gamma.WithLogger(logger),
		gamma.WithTimeout(cfg.API.Timeout),
		gamma.WithRetries(cfg.API.MaxRetries, time.Second),
	)
	books := clob.NewClient(
		cfg.API.ClobURL,
		clob.WithLogger(logger),
		clob.WithTimeout(cfg.API.Timeout),
		clob.WithRetries(cfg.API.MaxRetries, time.Second),
	)

	srv, _ := metrics.Serve(fmt.Sprintf(":%d", cfg.Metrics.Port), cfg.Metrics.Path)
	logger.Info("metrics server started", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)

	svc := poller.New(poller.Config{
		Interval:     cfg.Poller.Interval,
		MarketLimit:  cfg.Poller.MarketLimit,
		BatchSize:    cfg.Poller.BatchSize,
		BatchDelay:   cfg.Poller.BatchDelay,
		FetchTimeout: cfg.Poller.FetchTimeout,
		MinMid:       cfg.Poller.MinMid,
		MaxMid:       cfg.Poller.MaxMid,
	}, directory, books, store, logger)

	// A dead directory at startup is fatal; later refresh failures
	// just reuse the previous target list.
	if err := svc.Resolve(ctx); err != nil {
		logger.Error("failed to resolve poll targets", "error", err)
		os.Exit(1)
	}

	if err := svc.Run(ctx); err != nil {
		logger.Error("poller failed", "error", err)
		os.Exit(1)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	logger.Info("poller stopped")
}
