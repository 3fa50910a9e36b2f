package storage

import (
	"strings"
	"testing"
)

// The dedup contract lives in the schema: every event table must carry a
// uniqueness constraint matching its replay identity, and bootstrap must be
// re-runnable.
func TestSchemaStatements(t *testing.T) {
	t.Run("Rerunnable", func(t *testing.T) {
		for _, stmt := range schemaStatements {
			if !strings.Contains(stmt, "IF NOT EXISTS") {
				t.Errorf("statement is not re-runnable:\n%s", stmt)
			}
		}
	})

	t.Run("DedupKeys", func(t *testing.T) {
		tests := []struct {
			table string
			stmt  string
			key   string
		}{
			{"book_snapshots", createBookSnapshots, "UNIQUE (token_id, ts, source)"},
			{"trades", createTrades, "UNIQUE (token_id, ts, price, size)"},
			{"price_changes", createPriceChanges, "UNIQUE (token_id, ts, price, side)"},
			{"markets", createMarkets, "id                TEXT PRIMARY KEY"},
			{"fills", createFills, "id             TEXT PRIMARY KEY"},
		}

		for _, tt := range tests {
			t.Run(tt.table, func(t *testing.T) {
				if !strings.Contains(tt.stmt, tt.key) {
					t.Errorf("%s schema lacks dedup key %q", tt.table, tt.key)
				}
			})
		}
	})
}
