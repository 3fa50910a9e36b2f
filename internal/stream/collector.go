package stream

import (
	"context"
	"log/slog"
	"time"

	"github.com/quantfield/polymarket-data/internal/metrics"
	"github.com/quantfield/polymarket-data/internal/model"
)

// Store is the persistence surface the collector needs.
type Store interface {
	InsertSnapshot(ctx context.Context, snap model.BookSnapshot) error
	InsertTrade(ctx context.Context, trade model.Trade) error
	InsertPriceChanges(ctx context.Context, changes []model.PriceChange) error
}

// feedConn is the connection surface the collector drives; *Client
// implements it.
type feedConn interface {
	Subscribe(tokens []string) error
	Ping() error
	Messages() <-chan []byte
	Errors() <-chan error
	Close() error
}

// Config holds the collector runtime parameters.
type Config struct {
	// URL is the market channel websocket endpoint.
	URL string
	// Tokens are the asset IDs to subscribe to.
	Tokens []string
	// SubscribeBatchSize caps tokens per subscription frame.
	SubscribeBatchSize int
	// SubscribeDelay is the pause between subscription frames.
	SubscribeDelay time.Duration
	// ReadTimeout is how long the feed may stay silent before a
	// liveness probe is sent.
	ReadTimeout time.Duration
	// ReconnectBaseDelay and ReconnectMaxDelay bound the backoff.
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration
	// StatsInterval is how often running totals are logged.
	StatsInterval time.Duration
}

// counters are collection totals for the lifetime of the run. Only the
// collector goroutine touches them.
type counters struct {
	books        int64
	trades       int64
	priceChanges int64
	dropped      int64
	parseErrors  int64
	storeErrors  int64
	reconnects   int64
}

// Collector owns the feed connection lifecycle and persists every
// classified event.
type Collector struct {
	cfg    Config
	store  Store
	logger *slog.Logger

	fsm    *FSM
	client feedConn
	stats  counters
	start  time.Time
}

// NewCollector creates a collector. It does not connect; call Run.
func NewCollector(cfg Config, store Store, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		cfg:    cfg,
		store:  store,
		logger: logger,
		fsm:    NewFSM(cfg.ReconnectBaseDelay, cfg.ReconnectMaxDelay),
	}
}

// Run drives the connection state machine until ctx is cancelled.
// Transport failures reconnect with backoff; storage failures are
// logged and counted but never stop the run. Run returns nil on
// cancellation.
func (c *Collector) Run(ctx context.Context) error {
	c.start = time.Now()
	c.logger.Info("collector starting",
		"url", c.cfg.URL,
		"tokens", len(c.cfg.Tokens),
	)
	defer c.logFinal()

	for ctx.Err() == nil {
		switch c.fsm.State() {
		case StateDisconnected:
			c.fsm.Apply(EventStart)

		case StateConnecting:
			client := NewClient(ClientConfig{URL: c.cfg.URL}, c.logger)
			if err := client.Connect(ctx); err != nil {
				c.logger.Error("connect failed", "error", err)
				c.fail(ctx)
				continue
			}
			c.client = client
			c.fsm.Apply(EventConnected)

		case StateSubscribing:
			if err := c.subscribeAll(ctx); err != nil {
				c.logger.Error("subscribe failed", "error", err)
				c.client.Close()
				c.fail(ctx)
				continue
			}
			c.fsm.Apply(EventSubscribed)
			c.logger.Info("streaming", "tokens", len(c.cfg.Tokens))

		case StateStreaming:
			err := c.stream(ctx)
			c.client.Close()
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("stream interrupted", "error", err)
			c.fail(ctx)

		case StateReconnecting:
			// fail() already waited; re-enter Connecting.
			c.fsm.Apply(EventRetry)
		}
	}

	if c.client != nil {
		c.client.Close()
	}
	return nil
}

// fail records the failure, waits out the backoff, and leaves the
// machine in StateReconnecting.
func (c *Collector) fail(ctx context.Context) {
	c.stats.reconnects++
	metrics.Reconnects.Inc()

	tr := c.fsm.Apply(EventFailure)
	c.logger.Info("reconnecting", "wait", tr.Wait)
	sleepCtx(ctx, tr.Wait)
}

// subscribeAll sends subscription frames in batches with a pause
// between frames so the server is not flooded.
func (c *Collector) subscribeAll(ctx context.Context) error {
	size := c.cfg.SubscribeBatchSize
	if size <= 0 {
		size = 50
	}
	for i := 0; i < len(c.cfg.Tokens); i += size {
		end := i + size
		if end > len(c.cfg.Tokens) {
			end = len(c.cfg.Tokens)
		}
		if err := c.client.Subscribe(c.cfg.Tokens[i:end]); err != nil {
			return err
		}
		if end < len(c.cfg.Tokens) {
			if !sleepCtx(ctx, c.cfg.SubscribeDelay) {
				return ctx.Err()
			}
		}
	}
	return nil
}

// stream consumes frames until the transport errors or ctx ends. A
// silent feed gets a liveness probe every ReadTimeout: the idle timer
// is reset only by message arrival, so other select cases cannot
// starve it.
func (c *Collector) stream(ctx context.Context) error {
	statsTicker := time.NewTicker(c.cfg.StatsInterval)
	defer statsTicker.Stop()

	idle := time.NewTimer(c.cfg.ReadTimeout)
	defer idle.Stop()

	resetIdle := func() {
		if !idle.Stop() {
			select {
			case <-idle.C:
			default:
			}
		}
		idle.Reset(c.cfg.ReadTimeout)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-c.client.Errors():
			return err
		case data := <-c.client.Messages():
			c.handleRaw(ctx, data)
			resetIdle()
		case <-idle.C:
			c.logger.Debug("feed silent, sending ping")
			if err := c.client.Ping(); err != nil {
				return err
			}
			idle.Reset(c.cfg.ReadTimeout)
		case <-statsTicker.C:
			c.logStats()
		}
	}
}

// handleRaw classifies one frame and persists its events in arrival
// order.
func (c *Collector) handleRaw(ctx context.Context, data []byte) {
	events, err := Classify(data)
	if err != nil {
		c.stats.parseErrors++
		metrics.ParseDrops.Inc()
		c.logger.Debug("unparseable frame dropped", "error", err)
		return
	}

	for _, ev := range events {
		switch ev.Kind {
		case KindBook:
			if err := c.store.InsertSnapshot(ctx, ev.Book); err != nil {
				c.storeError("book", err)
				continue
			}
			c.stats.books++
			metrics.EventsStored.WithLabelValues("book").Inc()

		case KindTrade:
			if err := c.store.InsertTrade(ctx, ev.Trade); err != nil {
				c.storeError("trade", err)
				continue
			}
			c.stats.trades++
			metrics.EventsStored.WithLabelValues("trade").Inc()

		case KindPriceChange:
			if len(ev.Changes) == 0 {
				continue
			}
			if err := c.store.InsertPriceChanges(ctx, ev.Changes); err != nil {
				c.storeError("price_change", err)
				continue
			}
			c.stats.priceChanges += int64(len(ev.Changes))
			metrics.EventsStored.WithLabelValues("price_change").Inc()

		default:
			c.stats.dropped++
			metrics.ParseDrops.Inc()
		}
	}
}

func (c *Collector) storeError(kind string, err error) {
	c.stats.storeErrors++
	metrics.StorageErrors.WithLabelValues(kind).Inc()
	c.logger.Error("store failed", "kind", kind, "error", err)
}

func (c *Collector) logStats() {
	elapsed := time.Since(c.start)
	total := c.stats.books + c.stats.trades + c.stats.priceChanges
	rate := float64(total) / elapsed.Seconds()

	c.logger.Info("collection stats",
		"elapsed", elapsed.Round(time.Second),
		"books", c.stats.books,
		"trades", c.stats.trades,
		"price_changes", c.stats.priceChanges,
		"dropped", c.stats.dropped,
		"store_errors", c.stats.storeErrors,
		"reconnects", c.stats.reconnects,
		"rate_per_sec", rate,
	)
}

func (c *Collector) logFinal() {
	c.logger.Info("collector stopped",
		"elapsed", time.Since(c.start).Round(time.Second),
		"books", c.stats.books,
		"trades", c.stats.trades,
		"price_changes", c.stats.priceChanges,
		"dropped", c.stats.dropped,
		"store_errors", c.stats.storeErrors,
		"reconnects", c.stats.reconnects,
	)
}

// sleepCtx sleeps for d or until ctx ends, reporting whether the full
// duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
