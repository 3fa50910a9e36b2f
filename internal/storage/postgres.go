// Package storage implements the Postgres store for snapshots, trades,
// price changes, backfilled fills, and market metadata.
//
// Event writes use insert-ignore-duplicate semantics: the dedup key of each
// table is a uniqueness constraint, and a conflicting insert affects zero
// rows. Event rows are never updated or deleted; only market metadata is
// upserted when the directory is refreshed.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantfield/polymarket-data/internal/model"
)

// Store wraps a connection pool with the capture tables.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a Store on top of an existing pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates the capture tables and their uniqueness constraints
// if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// InsertSnapshot stores one book snapshot. A duplicate (token_id, ts, source)
// is silently ignored.
func (s *Store) InsertSnapshot(ctx context.Context, snap model.BookSnapshot) error {
	bids, err := json.Marshal(snap.Bids)
	if err != nil {
		return fmt.Errorf("marshal bids: %w", err)
	}
	asks, err := json.Marshal(snap.Asks)
	if err != nil {
		return fmt.Errorf("marshal asks: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO book_snapshots (token_id, ts, source, bids, asks, best_bid, best_ask, spread, bid_depth, ask_depth)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (token_id, ts, source) DO NOTHING
	`, snap.TokenID, snap.Timestamp, snap.Source, bids, asks,
		nullableFloat(snap.BestBid), nullableFloat(snap.BestAsk), nullableFloat(snap.Spread),
		snap.BidDepth, snap.AskDepth)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// InsertTrade stores one trade. A duplicate dedup key is silently ignored.
func (s *Store) InsertTrade(ctx context.Context, trade model.Trade) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO trades (token_id, ts, price, size, side, fee_rate_bps)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (token_id, ts, price, size) DO NOTHING
	`, trade.TokenID, trade.Timestamp, trade.Price, trade.Size, trade.Side, trade.FeeRateBps)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// InsertPriceChanges stores every delta of one price_change event in a
// single batch.
func (s *Store) InsertPriceChanges(ctx context.Context, changes []model.PriceChange) error {
	if len(changes) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range changes {
		batch.Queue(`
			INSERT INTO price_changes (token_id, ts, price, size, side, best_bid, best_ask)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (token_id, ts, price, side) DO NOTHING
		`, c.TokenID, c.Timestamp, c.Price, c.Size, c.Side, c.BestBid, c.BestAsk)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range changes {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert price change: %w", err)
		}
	}
	return nil
}

// UpsertMarkets stores one directory page of market metadata, refreshing
// rows already present.
func (s *Store) UpsertMarkets(ctx context.Context, metas []model.MarketMeta) error {
	if len(metas) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, m := range metas {
		batch.Queue(`
			INSERT INTO markets (id, question, condition_id, slug, category, end_date, resolution_source,
				outcomes, outcome_prices, volume, liquidity, active, closed, clob_token_ids,
				created_at, updated_at, fetched_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW())
			ON CONFLICT (id) DO UPDATE SET
				question = EXCLUDED.question,
				condition_id = EXCLUDED.condition_id,
				slug = EXCLUDED.slug,
				category = EXCLUDED.category,
				end_date = EXCLUDED.end_date,
				resolution_source = EXCLUDED.resolution_source,
				outcomes = EXCLUDED.outcomes,
				outcome_prices = EXCLUDED.outcome_prices,
				volume = EXCLUDED.volume,
				liquidity = EXCLUDED.liquidity,
				active = EXCLUDED.active,
				closed = EXCLUDED.closed,
				clob_token_ids = EXCLUDED.clob_token_ids,
				created_at = EXCLUDED.created_at,
				updated_at = EXCLUDED.updated_at,
				fetched_at = NOW()
		`, m.ID, m.Question, m.ConditionID, m.Slug, m.Category, m.EndDate, m.ResolutionSource,
			m.Outcomes, m.OutcomePrices, m.Volume, m.Liquidity, m.Active, m.Closed, m.ClobTokenIds,
			m.CreatedAt, m.UpdatedAt)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range metas {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert market: %w", err)
		}
	}
	return nil
}

// InsertFills stores one backfill page inside a single transaction and
// returns the number of rows actually inserted (conflicting ids are ignored).
func (s *Store) InsertFills(ctx context.Context, fills []model.Fill) (int64, error) {
	if len(fills) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, f := range fills {
		batch.Queue(`
			INSERT INTO fills (id, tx_hash, ts, maker, taker, maker_asset_id, taker_asset_id, maker_amount, taker_amount, fee)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO NOTHING
		`, f.ID, f.TxHash, f.Timestamp, f.Maker, f.Taker, f.MakerAssetID, f.TakerAssetID, f.MakerAmount, f.TakerAmount, f.Fee)
	}

	results := tx.SendBatch(ctx, batch)

	var inserted int64
	for range fills {
		ct, err := results.Exec()
		if err != nil {
			results.Close()
			return 0, fmt.Errorf("insert fill: %w", err)
		}
		inserted += ct.RowsAffected()
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit fills: %w", err)
	}

	return inserted, nil
}

// MaxFillID returns the largest stored fill id, or "" when the table is
// empty. This is the extraction resume cursor.
func (s *Store) MaxFillID(ctx context.Context) (string, error) {
	var id *string
	if err := s.pool.QueryRow(ctx, `SELECT MAX(id) FROM fills`).Scan(&id); err != nil {
		return "", fmt.Errorf("max fill id: %w", err)
	}
	if id == nil {
		return "", nil
	}
	return *id, nil
}

// FillCount returns the number of stored fills.
func (s *Store) FillCount(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM fills`).Scan(&n); err != nil {
		return 0, fmt.Errorf("fill count: %w", err)
	}
	return n, nil
}

// nullableFloat maps a zero value to NULL so empty book sides store as
// missing rather than zero prices.
func nullableFloat(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}
