// Package poller implements the Snapshot Poller component. On a fixed
// interval it refreshes its target list from the market directory and
// captures full order book depth for each target over REST.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quantfield/polymarket-data/internal/clob"
	"github.com/quantfield/polymarket-data/internal/gamma"
	"github.com/quantfield/polymarket-data/internal/metrics"
	"github.com/quantfield/polymarket-data/internal/model"
)

// Directory lists markets ranked by activity.
type Directory interface {
	TopMarketsByVolume(ctx context.Context, limit int) ([]gamma.Market, error)
}

// Books fetches order book depth for a single token.
type Books interface {
	Book(ctx context.Context, tokenID string) (*clob.Book, error)
}

// Store persists polled snapshots and the market metadata seen while
// resolving targets.
type Store interface {
	InsertSnapshot(ctx context.Context, snap model.BookSnapshot) error
	UpsertMarkets(ctx context.Context, metas []model.MarketMeta) error
}

// Config holds the poller runtime parameters.
type Config struct {
	// Interval is the target cadence of one full cycle.
	Interval time.Duration
	// MarketLimit caps how many targets a cycle polls.
	MarketLimit int
	// BatchSize is how many tokens are fetched concurrently.
	BatchSize int
	// BatchDelay is the pause between batches.
	BatchDelay time.Duration
	// FetchTimeout bounds each individual book fetch.
	FetchTimeout time.Duration
	// MinMid and MaxMid bound the mid price of polled markets.
	MinMid float64
	MaxMid float64
}

// Service runs the poll loop.
type Service struct {
	cfg       Config
	directory Directory
	books     Books
	store     Store
	logger    *slog.Logger

	targets []Target
	start   time.Time

	// Updated from batch goroutines.
	snapshots atomic.Int64
	errors    atomic.Int64
}

// New creates a poller service. Call Resolve once before Run so a dead
// directory is caught at startup.
func New(cfg Config, directory Directory, books Books, store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:       cfg,
		directory: directory,
		books:     books,
		store:     store,
		logger:    logger,
	}
}

// Resolve refreshes the target list from the directory. The directory
// is asked for a deep ranking so enough markets survive the mid price
// filter.
func (s *Service) Resolve(ctx context.Context) error {
	markets, err := s.directory.TopMarketsByVolume(ctx, 500)
	if err != nil {
		return err
	}

	// Persist metadata for the whole directory page, not just the
	// markets that survive the filter.
	if err := s.store.UpsertMarkets(ctx, gamma.Metas(markets)); err != nil {
		s.logger.Error("market metadata upsert failed", "error", err)
	}

	targets := SelectTargets(markets, s.cfg.MinMid, s.cfg.MaxMid, s.cfg.MarketLimit)
	if len(targets) == 0 {
		return errors.New("poller: no markets passed the target filter")
	}

	s.targets = targets
	return nil
}

// Run polls until ctx is cancelled. Each cycle refreshes the target
// list; if the refresh fails the previous list is reused. Cycles that
// overrun the interval start the next one immediately.
func (s *Service) Run(ctx context.Context) error {
	s.start = time.Now()
	s.logger.Info("poller starting",
		"targets", len(s.targets),
		"interval", s.cfg.Interval,
	)
	defer s.logFinal()

	for {
		cycleStart := time.Now()

		if err := s.Resolve(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn("target refresh failed, reusing previous list",
				"error", err,
				"targets", len(s.targets),
			)
		}

		s.cycle(ctx)
		if ctx.Err() != nil {
			return nil
		}

		s.logStats()

		wait := s.cfg.Interval - time.Since(cycleStart)
		if wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// cycle snapshots every target once, in concurrent batches.
func (s *Service) cycle(ctx context.Context) {
	for i := 0; i < len(s.targets); i += s.cfg.BatchSize {
		if ctx.Err() != nil {
			return
		}

		end := i + s.cfg.BatchSize
		if end > len(s.targets) {
			end = len(s.targets)
		}
		s.pollBatch(ctx, s.targets[i:end])

		if end < len(s.targets) {
			select {
			case <-time.After(s.cfg.BatchDelay):
			case <-ctx.Done():
				return
			}
		}
	}
}

// pollBatch fetches one batch concurrently. A failure on one token
// never affects the others.
func (s *Service) pollBatch(ctx context.Context, batch []Target) {
	g, gctx := errgroup.WithContext(ctx)

	for _, target := range batch {
		target := target
		g.Go(func() error {
			s.pollOne(gctx, target)
			// Errors are counted per token, not propagated, so one
			// slow book cannot cancel its batch mates.
			return nil
		})
	}
	g.Wait()
}

func (s *Service) pollOne(ctx context.Context, target Target) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	book, err := s.books.Book(fetchCtx, target.TokenID)
	if err != nil {
		s.errors.Add(1)
		metrics.PollErrors.WithLabelValues(failureCause(err)).Inc()
		s.logger.Debug("book fetch failed",
			"token", target.TokenID,
			"slug", target.Slug,
			"error", err,
		)
		return
	}

	snap := model.NewBookSnapshot(target.TokenID, time.Now().UnixMilli(), "rest", book.Bids, book.Asks)
	if err := s.store.InsertSnapshot(ctx, snap); err != nil {
		s.errors.Add(1)
		metrics.PollErrors.WithLabelValues("store").Inc()
		s.logger.Error("snapshot store failed", "token", target.TokenID, "error", err)
		return
	}

	s.snapshots.Add(1)
	metrics.PollSnapshots.Inc()
}

// failureCause buckets a fetch error for metrics. Timeouts and
// retryable API failures are transient; anything else (4xx, malformed
// responses) is not expected to heal on its own.
func failureCause(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || gamma.Retryable(err) {
		return "transient"
	}
	return "other"
}

func (s *Service) logStats() {
	elapsed := time.Since(s.start)
	perHour := float64(s.snapshots.Load()) / elapsed.Hours()

	s.logger.Info("poll stats",
		"elapsed", elapsed.Round(time.Second),
		"snapshots", s.snapshots.Load(),
		"errors", s.errors.Load(),
		"per_hour", perHour,
	)
}

func (s *Service) logFinal() {
	s.logger.Info("poller stopped",
		"elapsed", time.Since(s.start).Round(time.Second),
		"snapshots", s.snapshots.Load(),
		"errors", s.errors.Load(),
	)
}
