package gamma

import (
	"encoding/json"

	"github.com/quantfield/polymarket-data/internal/model"
)

// Market is a prediction market as the directory reports it: the fields the
// pipeline consumes for targeting plus the metadata it archives.
type Market struct {
	ID               string  `json:"id"`
	Question         string  `json:"question"`
	ConditionID      string  `json:"conditionId"`
	Slug             string  `json:"slug"`
	Category         string  `json:"category"`
	EndDate          string  `json:"endDate"`
	ResolutionSource string  `json:"resolutionSource"`
	Active           bool    `json:"active"`
	Closed           bool    `json:"closed"`
	Volume           float64 `json:"volume"`
	Volume24hr       float64 `json:"volume24hr"`
	Liquidity        float64 `json:"liquidity"`
	BestBid          float64 `json:"bestBid"`
	BestAsk          float64 `json:"bestAsk"`
	CreatedAt        string  `json:"createdAt"`
	UpdatedAt        string  `json:"updatedAt"`

	// Outcomes, OutcomePrices and ClobTokenIds are JSON arrays encoded as
	// strings, one entry per outcome.
	Outcomes      string `json:"outcomes"`
	OutcomePrices string `json:"outcomePrices"`
	ClobTokenIds  string `json:"clobTokenIds"`
}

// Meta converts the directory record into the archived metadata row.
func (m *Market) Meta() model.MarketMeta {
	return model.MarketMeta{
		ID:               m.ID,
		Question:         m.Question,
		ConditionID:      m.ConditionID,
		Slug:             m.Slug,
		Category:         m.Category,
		EndDate:          m.EndDate,
		ResolutionSource: m.ResolutionSource,
		Outcomes:         m.Outcomes,
		OutcomePrices:    m.OutcomePrices,
		Volume:           m.Volume,
		Liquidity:        m.Liquidity,
		Active:           m.Active,
		Closed:           m.Closed,
		ClobTokenIds:     m.ClobTokenIds,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// Metas converts a directory page for archiving.
func Metas(markets []Market) []model.MarketMeta {
	metas := make([]model.MarketMeta, len(markets))
	for i := range markets {
		metas[i] = markets[i].Meta()
	}
	return metas
}

// ParseTokenIDs decodes the ClobTokenIds field.
func (m *Market) ParseTokenIDs() ([]string, error) {
	if m.ClobTokenIds == "" {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(m.ClobTokenIds), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// MidPrice returns the average of best bid and best ask.
func (m *Market) MidPrice() float64 {
	return (m.BestBid + m.BestAsk) / 2
}

// TokenIDs collects every token id across the given markets, in market order.
// Markets with malformed token lists are skipped.
func TokenIDs(markets []Market) []string {
	var tokens []string
	for i := range markets {
		ids, err := markets[i].ParseTokenIDs()
		if err != nil {
			continue
		}
		tokens = append(tokens, ids...)
	}
	return tokens
}
