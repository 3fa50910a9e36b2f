// Command extractor backfills the historical fill ledger from the
// Goldsky order book subgraph into Postgres. It runs to completion and
// may be re-run at any time; each run resumes from the highest fill id
// already stored.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/quantfield/polymarket-data/internal/config"
	"github.com/quantfield/polymarket-data/internal/database"
	"github.com/quantfield/polymarket-data/internal/extract"
	"github.com/quantfield/polymarket-data/internal/metrics"
	"github.com/quantfield/polymarket-data/internal/storage"
	"github.com/quantfield/polymarket-data/internal/subgraph"
	"github.com/quantfield/polymarket-data/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/extractor.local.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	logger.Info("starting extractor",
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

	srv, _ := metrics.Serve(fmt.Sprintf(":%d", cfg.Metrics.Port), cfg.Metrics.Path)
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	source := subgraph.NewClient(
		cfg.API.SubgraphURL,
		subgraph.WithLogger(logger),
		subgraph.WithTimeout(cfg.API.Timeout),
		subgraph.WithRetries(cfg.Extractor.MaxRetries, cfg.Extractor.RetryBaseDelay),
	)

	extractor := extract.New(extract.Config{
		PageSize:      cfg.Extractor.PageSize,
		PageDelay:     cfg.Extractor.PageDelay,
		ProgressEvery: cfg.Extractor.ProgressEvery,
	}, source, store, logger)

	res, err := extractor.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Interrupted runs leave a clean resume point.
			logger.Info("extraction interrupted",
				"inserted", res.Inserted,
				"pages", res.Pages,
				"elapsed", res.Elapsed.Round(time.Second),
			)
			return
		}
		logger.Error("extraction failed",
			"error", err,
			"inserted", res.Inserted,
			"pages", res.Pages,
		)
		os.Exit(1)
	}

	logger.Info("extractor finished",
		"inserted", res.Inserted,
		"pages", res.Pages,
		"up_to_date", res.UpToDate,
		"elapsed", res.Elapsed.Round(time.Second),
	)
}
