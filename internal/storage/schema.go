package storage

// Event tables are append-only; a uniqueness constraint per table carries the
// dedup key, so every writer can INSERT ... ON CONFLICT DO NOTHING and
// concurrent re-delivery is safe without coordination. The markets directory
// is the one mutable table: metadata is upserted on refresh.
const (
	createBookSnapshots = `
		CREATE TABLE IF NOT EXISTS book_snapshots (
			id          BIGSERIAL PRIMARY KEY,
			token_id    TEXT NOT NULL,
			ts          BIGINT NOT NULL,
			source      TEXT NOT NULL,
			captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			bids        JSONB,
			asks        JSONB,
			best_bid    DOUBLE PRECISION,
			best_ask    DOUBLE PRECISION,
			spread      DOUBLE PRECISION,
			bid_depth   DOUBLE PRECISION,
			ask_depth   DOUBLE PRECISION,
			UNIQUE (token_id, ts, source)
		);
		CREATE INDEX IF NOT EXISTS idx_book_snapshots_token_ts
			ON book_snapshots (token_id, ts);`

	createTrades = `
		CREATE TABLE IF NOT EXISTS trades (
			id           BIGSERIAL PRIMARY KEY,
			token_id     TEXT NOT NULL,
			ts           BIGINT NOT NULL,
			price        DOUBLE PRECISION NOT NULL,
			size         DOUBLE PRECISION NOT NULL,
			side         TEXT,
			fee_rate_bps TEXT,
			UNIQUE (token_id, ts, price, size)
		);
		CREATE INDEX IF NOT EXISTS idx_trades_token_ts
			ON trades (token_id, ts);`

	createPriceChanges = `
		CREATE TABLE IF NOT EXISTS price_changes (
			id       BIGSERIAL PRIMARY KEY,
			token_id TEXT NOT NULL,
			ts       BIGINT NOT NULL,
			price    DOUBLE PRECISION NOT NULL,
			size     DOUBLE PRECISION NOT NULL,
			side     TEXT,
			best_bid DOUBLE PRECISION,
			best_ask DOUBLE PRECISION,
			UNIQUE (token_id, ts, price, side)
		);
		CREATE INDEX IF NOT EXISTS idx_price_changes_token_ts
			ON price_changes (token_id, ts);`

	createMarkets = `
		CREATE TABLE IF NOT EXISTS markets (
			id                TEXT PRIMARY KEY,
			question          TEXT,
			condition_id      TEXT,
			slug              TEXT,
			category          TEXT,
			end_date          TEXT,
			resolution_source TEXT,
			outcomes          TEXT,
			outcome_prices    TEXT,
			volume            DOUBLE PRECISION,
			liquidity         DOUBLE PRECISION,
			active            BOOLEAN,
			closed            BOOLEAN,
			clob_token_ids    TEXT,
			created_at        TEXT,
			updated_at        TEXT,
			fetched_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	createFills = `
		CREATE TABLE IF NOT EXISTS fills (
			id             TEXT PRIMARY KEY,
			tx_hash        TEXT,
			ts             BIGINT NOT NULL,
			maker          TEXT,
			taker          TEXT,
			maker_asset_id TEXT,
			taker_asset_id TEXT,
			maker_amount   BIGINT,
			taker_amount   BIGINT,
			fee            BIGINT
		);
		CREATE INDEX IF NOT EXISTS idx_fills_ts
			ON fills (ts);`
)

var schemaStatements = []string{
	createBookSnapshots,
	createTrades,
	createPriceChanges,
	createMarkets,
	createFills,
}
