// Command collector maintains a live subscription to the Polymarket
// market channel and persists every book, trade and price change event.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/quantfield/polymarket-data/internal/config"
	"github.com/quantfield/polymarket-data/internal/database"
	"github.com/quantfield/polymarket-data/internal/gamma"
	"github.com/quantfield/polymarket-data/internal/metrics"
	"github.com/quantfield/polymarket-data/internal/storage"
	"github.com/quantfield/polymarket-data/internal/stream"
	"github.com/quantfield/polymarket-data/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/collector.local.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	logger.Info("starting collector",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"ws_url", cfg.API.WSURL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

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

	// Resolve the subscription universe from the market directory.
	directory := gamma.NewClient(
		cfg.API.GammaURL,
		gamma.WithLogger(logger),
		gamma.WithTimeout(cfg.API.Timeout),
		gamma.WithRetries(cfg.API.MaxRetries, time.Second),
	)

	markets, err := directory.ActiveMarkets(ctx, cfg.Stream.MarketLimit)
	if err != nil {
		logger.Error("failed to fetch market directory", "error", err)
		os.Exit(1)
	}
	if err := store.UpsertMarkets(ctx, gamma.Metas(markets)); err != nil {
		logger.Error("market metadata upsert failed", "error", err)
	}

	tokens := gamma.TokenIDs(markets)
	if len(tokens) == 0 {
		logger.Error("no tokens to subscribe to")
		os.Exit(1)
	}
	logger.Info("subscription universe resolved",
		"markets", len(markets),
		"tokens", len(tokens),
	)

	// Metrics and health endpoints.
	srv, mux := metrics.Serve(fmt.Sprintf(":%d", cfg.Metrics.Port), cfg.Metrics.Path)
	mux.HandleFunc("/health", healthHandler(store))
	logger.Info("metrics server started", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)

	collector := stream.NewCollector(stream.Config{
		URL:                cfg.API.WSURL,
		Tokens:             tokens,
		SubscribeBatchSize: cfg.Stream.SubscribeBatchSize,
		SubscribeDelay:     cfg.Stream.SubscribeDelay,
		ReadTimeout:        cfg.Stream.ReadTimeout,
		ReconnectBaseDelay: cfg.Stream.ReconnectBaseDelay,
		ReconnectMaxDelay:  cfg.Stream.ReconnectMaxDelay,
		StatsInterval:      cfg.Stream.StatsInterval,
	}, store, logger)

	if err := collector.Run(ctx); err != nil {
		logger.Error("collector failed", "error", err)
		os.Exit(1)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	logger.Info("collector stopped")
}

// healthHandler reports database reachability.
func healthHandler(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string            `json:"status"`
			Components map[string]string `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]string),
		}

		if err := store.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["postgres"] = "disconnected: " + err.Error()
		} else {
			health.Components["postgres"] = "connected"
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	}
}
