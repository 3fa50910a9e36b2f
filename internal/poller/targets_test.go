package poller

import (
	"testing"

	"github.com/quantfield/polymarket-data/internal/gamma"
)

func market(slug string, bid, ask float64, tokens string) gamma.Market {
	return gamma.Market{
		Slug:         slug,
		BestBid:      bid,
		BestAsk:      ask,
		ClobTokenIds: tokens,
	}
}

func TestSelectTargets(t *testing.T) {
	t.Run("FiltersExtremeMids", func(t *testing.T) {
		markets := []gamma.Market{
			market("longshot", 0.04, 0.06, `["t1","t1b"]`),  // mid 0.05, out
			market("tossup", 0.49, 0.51, `["t2","t2b"]`),    // mid 0.50, in
			market("nearcert", 0.94, 0.96, `["t3","t3b"]`),  // mid 0.95, out
			market("leaning", 0.64, 0.66, `["t4","t4b"]`),   // mid 0.65, in
		}

		targets := SelectTargets(markets, 0.10, 0.90, 100)
		if len(targets) != 2 {
			t.Fatalf("got %d targets, want 2", len(targets))
		}
		if targets[0].TokenID != "t2" || targets[1].TokenID != "t4" {
			t.Errorf("targets = %+v", targets)
		}
	})

	t.Run("BoundaryMidsIncluded", func(t *testing.T) {
		markets := []gamma.Market{
			market("low-edge", 0.10, 0.10, `["lo"]`),
			market("high-edge", 0.90, 0.90, `["hi"]`),
		}

		targets := SelectTargets(markets, 0.10, 0.90, 100)
		if len(targets) != 2 {
			t.Fatalf("boundary mids should be kept, got %d targets", len(targets))
		}
	})

	t.Run("SkipsMalformedTokenLists", func(t *testing.T) {
		markets := []gamma.Market{
			market("broken", 0.49, 0.51, `not json`),
			market("empty", 0.49, 0.51, `[]`),
			market("missing", 0.49, 0.51, ""),
			market("good", 0.49, 0.51, `["ok"]`),
		}

		targets := SelectTargets(markets, 0.10, 0.90, 100)
		if len(targets) != 1 || targets[0].TokenID != "ok" {
			t.Fatalf("targets = %+v, want single ok", targets)
		}
	})

	t.Run("HonorsLimitInDirectoryOrder", func(t *testing.T) {
		markets := []gamma.Market{
			market("a", 0.49, 0.51, `["ta"]`),
			market("b", 0.49, 0.51, `["tb"]`),
			market("c", 0.49, 0.51, `["tc"]`),
		}

		targets := SelectTargets(markets, 0.10, 0.90, 2)
		if len(targets) != 2 {
			t.Fatalf("got %d targets, want 2", len(targets))
		}
		if targets[0].TokenID != "ta" || targets[1].TokenID != "tb" {
			t.Errorf("targets = %+v", targets)
		}
	})

	t.Run("FirstTokenPerMarket", func(t *testing.T) {
		markets := []gamma.Market{market("two-sided", 0.49, 0.51, `["yes","no"]`)}

		targets := SelectTargets(markets, 0.10, 0.90, 10)
		if len(targets) != 1 || targets[0].TokenID != "yes" {
			t.Fatalf("targets = %+v, want first token only", targets)
		}
	})
}
