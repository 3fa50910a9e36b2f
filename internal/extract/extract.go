// Package extract implements the Bulk Extractor, a run-to-completion
// batch job that backfills the historical fill ledger from the indexer
// into Postgres via keyset pagination on fill id.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quantfield/polymarket-data/internal/metrics"
	"github.com/quantfield/polymarket-data/internal/model"
)

// Source is the indexer side of the backfill.
type Source interface {
	// TotalFills reports the global fill count for progress accounting.
	TotalFills(ctx context.Context) (int64, error)
	// FillsPage returns up to pageSize fills with id > cursor, ordered
	// by id ascending.
	FillsPage(ctx context.Context, cursor string, pageSize int) ([]model.Fill, error)
}

// Store is the persistence side of the backfill.
type Store interface {
	FillCount(ctx context.Context) (int64, error)
	MaxFillID(ctx context.Context) (string, error)
	InsertFills(ctx context.Context, fills []model.Fill) (int64, error)
}

// Config holds the extractor runtime parameters.
type Config struct {
	// PageSize is the number of fills requested per page.
	PageSize int
	// PageDelay is the pause between pages.
	PageDelay time.Duration
	// ProgressEvery is how many pages between progress log lines.
	ProgressEvery int
}

// Result summarizes a completed extraction run.
type Result struct {
	Inserted int64
	Pages    int
	Elapsed  time.Duration
	// UpToDate is true when the store already held every fill and no
	// pages were fetched.
	UpToDate bool
}

// Extractor drives the backfill.
type Extractor struct {
	cfg    Config
	source Source
	store  Store
	logger *slog.Logger
}

// New creates an extractor.
func New(cfg Config, source Source, store Store, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{cfg: cfg, source: source, store: store, logger: logger}
}

// Run extracts until the indexer returns an empty page, resuming from
// the highest fill id already stored. Source errors are fatal; the
// source's own retry policy has already been exhausted by then, and a
// later run resumes cleanly from where this one stopped.
func (e *Extractor) Run(ctx context.Context) (Result, error) {
	total, err := e.source.TotalFills(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("fetching global fill count: %w", err)
	}
	stored, err := e.store.FillCount(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("counting stored fills: %w", err)
	}

	e.logger.Info("extraction state",
		"indexer_total", total,
		"stored", stored,
		"remaining", total-stored,
	)

	if stored >= total {
		e.logger.Info("store is up to date")
		return Result{UpToDate: true}, nil
	}

	cursor, err := e.store.MaxFillID(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("reading resume cursor: %w", err)
	}
	if cursor != "" {
		e.logger.Info("resuming extraction", "cursor", cursor)
	} else {
		e.logger.Info("starting fresh extraction")
	}

	start := time.Now()
	var res Result
	for {
		if err := ctx.Err(); err != nil {
			res.Elapsed = time.Since(start)
			return res, err
		}

		fills, err := e.source.FillsPage(ctx, cursor, e.cfg.PageSize)
		if err != nil {
			res.Elapsed = time.Since(start)
			return res, fmt.Errorf("fetching page after %q: %w", cursor, err)
		}
		if len(fills) == 0 {
			break
		}

		inserted, err := e.store.InsertFills(ctx, fills)
		if err != nil {
			res.Elapsed = time.Since(start)
			return res, fmt.Errorf("storing page after %q: %w", cursor, err)
		}

		res.Inserted += inserted
		res.Pages++
		metrics.FillsInserted.Add(float64(inserted))
		cursor = fills[len(fills)-1].ID

		if e.cfg.ProgressEvery > 0 && res.Pages%e.cfg.ProgressEvery == 0 {
			e.logProgress(stored, total, res.Inserted, start, res.Pages)
		}

		// A short page means the remote is exhausted; only an exact
		// page-size multiple needs the empty terminator above.
		if len(fills) < e.cfg.PageSize {
			break
		}

		select {
		case <-time.After(e.cfg.PageDelay):
		case <-ctx.Done():
			res.Elapsed = time.Since(start)
			return res, ctx.Err()
		}
	}

	res.Elapsed = time.Since(start)
	e.logger.Info("extraction complete",
		"inserted", res.Inserted,
		"pages", res.Pages,
		"elapsed", res.Elapsed.Round(time.Second),
	)
	return res, nil
}

// logProgress derives rate, completion and ETA from counts alone.
func (e *Extractor) logProgress(stored, total, inserted int64, start time.Time, pages int) {
	elapsed := time.Since(start).Seconds()
	rate := float64(inserted) / elapsed

	current := stored + inserted
	pct := 0.0
	if total > 0 {
		pct = float64(current) / float64(total) * 100
	}
	eta := time.Duration(0)
	if rate > 0 {
		eta = time.Duration(float64(total-current)/rate) * time.Second
	}

	e.logger.Info("extraction progress",
		"page", pages,
		"current", current,
		"total", total,
		"pct", fmt.Sprintf("%.1f", pct),
		"rate_per_sec", fmt.Sprintf("%.0f", rate),
		"eta", eta.Round(time.Minute),
	)
}
