package stream

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quantfield/polymarket-data/internal/model"
)

// recordingStore captures every insert in arrival order.
type recordingStore struct {
	calls       []string
	snapshots   []model.BookSnapshot
	trades      []model.Trade
	changes     [][]model.PriceChange
	snapshotErr error
	tradeErr    error
}

func (s *recordingStore) InsertSnapshot(_ context.Context, snap model.BookSnapshot) error {
	if s.snapshotErr != nil {
		return s.snapshotErr
	}
	s.calls = append(s.calls, "book")
	s.snapshots = append(s.snapshots, snap)
	return nil
}

func (s *recordingStore) InsertTrade(_ context.Context, trade model.Trade) error {
	if s.tradeErr != nil {
		return s.tradeErr
	}
	s.calls = append(s.calls, "trade")
	s.trades = append(s.trades, trade)
	return nil
}

func (s *recordingStore) InsertPriceChanges(_ context.Context, changes []model.PriceChange) error {
	s.calls = append(s.calls, "price_change")
	s.changes = append(s.changes, changes)
	return nil
}

func newTestCollector(store Store) *Collector {
	return NewCollector(Config{URL: "ws://unused"}, store, nil)
}

// fakeConn is a feed connection whose pings can be counted.
type fakeConn struct {
	messages chan []byte
	errs     chan error
	pings    atomic.Int32
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		messages: make(chan []byte, 16),
		errs:     make(chan error, 1),
	}
}

func (f *fakeConn) Subscribe([]string) error { return nil }
func (f *fakeConn) Messages() <-chan []byte  { return f.messages }
func (f *fakeConn) Errors() <-chan error     { return f.errs }
func (f *fakeConn) Close() error             { return nil }

func (f *fakeConn) Ping() error {
	f.pings.Add(1)
	return nil
}

func TestStreamLiveness(t *testing.T) {
	t.Run("SilentFeedGetsProbed", func(t *testing.T) {
		// Stats fire more often than the silence window; the idle
		// timer must still win once the feed has been quiet for a
		// full ReadTimeout.
		c := NewCollector(Config{
			URL:           "ws://unused",
			ReadTimeout:   20 * time.Millisecond,
			StatsInterval: 5 * time.Millisecond,
		}, &recordingStore{}, nil)
		conn := newFakeConn()
		c.client = conn

		ctx, cancel := context.WithTimeout(context.Background(), 110*time.Millisecond)
		defer cancel()
		if err := c.stream(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("stream() error = %v, want deadline exceeded", err)
		}

		if got := conn.pings.Load(); got < 2 {
			t.Errorf("pings = %d, want at least 2 over five silence windows", got)
		}
	})

	t.Run("TrafficSuppressesProbe", func(t *testing.T) {
		c := NewCollector(Config{
			URL:           "ws://unused",
			ReadTimeout:   60 * time.Millisecond,
			StatsInterval: 10 * time.Millisecond,
		}, &recordingStore{}, nil)
		conn := newFakeConn()
		c.client = conn

		ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
		defer cancel()

		go func() {
			frame := []byte(`{"event_type": "book", "asset_id": "t1", "timestamp": "1", "bids": [], "asks": []}`)
			ticker := time.NewTicker(10 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					conn.messages <- frame
				}
			}
		}()

		if err := c.stream(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("stream() error = %v, want deadline exceeded", err)
		}

		if got := conn.pings.Load(); got != 0 {
			t.Errorf("pings = %d, want 0 while messages keep arriving", got)
		}
	})

	t.Run("TransportErrorEndsStream", func(t *testing.T) {
		c := NewCollector(Config{
			URL:           "ws://unused",
			ReadTimeout:   time.Second,
			StatsInterval: time.Second,
		}, &recordingStore{}, nil)
		conn := newFakeConn()
		c.client = conn

		wantErr := errors.New("connection reset")
		conn.errs <- wantErr

		if err := c.stream(context.Background()); !errors.Is(err, wantErr) {
			t.Fatalf("stream() error = %v, want %v", err, wantErr)
		}
	})
}

func TestHandleRaw(t *testing.T) {
	t.Run("DispatchesArrayInOrder", func(t *testing.T) {
		store := &recordingStore{}
		c := newTestCollector(store)

		frame := []byte(`[
			{"event_type": "last_trade_price", "asset_id": "t1", "timestamp": "1", "price": "0.4", "size": "1", "side": "BUY"},
			{"event_type": "book", "asset_id": "t1", "timestamp": "2", "bids": [], "asks": []},
			{"event_type": "price_change", "timestamp": "3", "price_changes": [{"asset_id": "t1", "price": "0.41", "size": "2", "side": "SELL"}]}
		]`)
		c.handleRaw(context.Background(), frame)

		want := []string{"trade", "book", "price_change"}
		if len(store.calls) != len(want) {
			t.Fatalf("got %d calls (%v), want %d", len(store.calls), store.calls, len(want))
		}
		for i, w := range want {
			if store.calls[i] != w {
				t.Errorf("call %d = %q, want %q", i, store.calls[i], w)
			}
		}
		if c.stats.books != 1 || c.stats.trades != 1 || c.stats.priceChanges != 1 {
			t.Errorf("counters = %+v", c.stats)
		}
	})

	t.Run("StorageErrorDoesNotHalt", func(t *testing.T) {
		store := &recordingStore{snapshotErr: errors.New("db down")}
		c := newTestCollector(store)

		frame := []byte(`[
			{"event_type": "book", "asset_id": "t1", "timestamp": "1", "bids": [], "asks": []},
			{"event_type": "last_trade_price", "asset_id": "t1", "timestamp": "2", "price": "0.5", "size": "1", "side": "BUY"}
		]`)
		c.handleRaw(context.Background(), frame)

		if c.stats.storeErrors != 1 {
			t.Errorf("store errors = %d, want 1", c.stats.storeErrors)
		}
		if len(store.trades) != 1 {
			t.Errorf("trade after failed book: got %d inserts, want 1", len(store.trades))
		}
	})

	t.Run("UnknownCountedAsDropped", func(t *testing.T) {
		store := &recordingStore{}
		c := newTestCollector(store)

		c.handleRaw(context.Background(), []byte(`{"event_type": "tick_size_change"}`))

		if len(store.calls) != 0 {
			t.Errorf("unexpected store calls: %v", store.calls)
		}
		if c.stats.dropped != 1 {
			t.Errorf("dropped = %d, want 1", c.stats.dropped)
		}
	})

	t.Run("MalformedFrameCounted", func(t *testing.T) {
		store := &recordingStore{}
		c := newTestCollector(store)

		c.handleRaw(context.Background(), []byte(`{broken`))

		if c.stats.parseErrors != 1 {
			t.Errorf("parse errors = %d, want 1", c.stats.parseErrors)
		}
		if len(store.calls) != 0 {
			t.Errorf("unexpected store calls: %v", store.calls)
		}
	})

	t.Run("EmptyPriceChangeSkipped", func(t *testing.T) {
		store := &recordingStore{}
		c := newTestCollector(store)

		c.handleRaw(context.Background(), []byte(`{"event_type": "price_change", "timestamp": "1", "price_changes": []}`))

		if len(store.calls) != 0 {
			t.Errorf("unexpected store calls: %v", store.calls)
		}
	})
}
