package poller

import "github.com/quantfield/polymarket-data/internal/gamma"

// Target is one token the poller snapshots each cycle.
type Target struct {
	TokenID  string
	Slug     string
	Question string
}

// SelectTargets filters markets down to poll targets. Markets whose mid
// price falls outside [minMid, maxMid] are skipped, as are markets with
// a missing or malformed token list. The first token of each surviving
// market is taken, in the directory's order, up to limit.
func SelectTargets(markets []gamma.Market, minMid, maxMid float64, limit int) []Target {
	targets := make([]Target, 0, limit)
	for i := range markets {
		if len(targets) >= limit {
			break
		}
		m := &markets[i]

		mid := m.MidPrice()
		if mid < minMid || mid > maxMid {
			continue
		}

		ids, err := m.ParseTokenIDs()
		if err != nil || len(ids) == 0 {
			continue
		}

		targets = append(targets, Target{
			TokenID:  ids[0],
			Slug:     m.Slug,
			Question: m.Question,
		})
	}
	return targets
}
