package model

import "strconv"

// -----------------------------------------------------------------------------
// Order Book Types
// -----------------------------------------------------------------------------

// PriceLevel is a single resting price level, kept as wire strings so that
// stored books round-trip exactly what the venue sent.
type PriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// BookSnapshot is a full order book for one token at a point in time.
type BookSnapshot struct {
	TokenID   string       // CLOB token (asset) identifier
	Timestamp int64        // Capture time (ms since epoch)
	Source    string       // "ws" or "rest"
	Bids      []PriceLevel // Best-first bid levels
	Asks      []PriceLevel // Best-first ask levels
	BestBid   float64      // 0 when the side is empty
	BestAsk   float64      // 0 when the side is empty
	Spread    float64      // BestAsk - BestBid, 0 when either side is empty
	BidDepth  float64      // Sum of size*price over all bid levels
	AskDepth  float64      // Sum of size*price over all ask levels
}

// NewBookSnapshot builds a snapshot and derives best prices, spread, and
// per-side depth from the raw levels.
func NewBookSnapshot(tokenID string, ts int64, source string, bids, asks []PriceLevel) BookSnapshot {
	s := BookSnapshot{
		TokenID:   tokenID,
		Timestamp: ts,
		Source:    source,
		Bids:      bids,
		Asks:      asks,
		BidDepth:  Depth(bids),
		AskDepth:  Depth(asks),
	}

	if len(bids) > 0 {
		s.BestBid = parsePrice(bids[0].Price)
	}
	if len(asks) > 0 {
		s.BestAsk = parsePrice(asks[0].Price)
	}
	if s.BestBid > 0 && s.BestAsk > 0 {
		s.Spread = s.BestAsk - s.BestBid
	}

	return s
}

// Depth returns the aggregate notional resting on one side: sum of size*price.
func Depth(levels []PriceLevel) float64 {
	var total float64
	for _, l := range levels {
		total += parsePrice(l.Price) * parsePrice(l.Size)
	}
	return total
}

func parsePrice(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// -----------------------------------------------------------------------------
// Stream Event Types
// -----------------------------------------------------------------------------

// Trade is an executed trade reported on the push feed.
type Trade struct {
	TokenID    string  // CLOB token identifier
	Timestamp  int64   // Venue timestamp (ms since epoch)
	Price      float64 // Trade price in (0,1)
	Size       float64 // Number of shares
	Side       string  // "BUY" or "SELL"
	FeeRateBps string  // Fee rate as reported, empty when absent
}

// PriceChange is one price-level delta from a price_change event. A single
// push event may carry several of these; each becomes its own row.
type PriceChange struct {
	TokenID   string
	Timestamp int64   // Venue timestamp (ms since epoch)
	Price     float64 // Level price in (0,1)
	Size      float64 // New size resting at the level
	Side      string  // "BUY" or "SELL"
	BestBid   *float64
	BestAsk   *float64
}

// -----------------------------------------------------------------------------
// Directory Types
// -----------------------------------------------------------------------------

// MarketMeta is directory metadata for one market, archived so stored books
// and trades can be joined back to the market they priced. JSON-array fields
// keep the directory's string encoding.
type MarketMeta struct {
	ID               string
	Question         string
	ConditionID      string
	Slug             string
	Category         string
	EndDate          string
	ResolutionSource string
	Outcomes         string
	OutcomePrices    string
	Volume           float64
	Liquidity        float64
	Active           bool
	Closed           bool
	ClobTokenIds     string
	CreatedAt        string
	UpdatedAt        string
}

// -----------------------------------------------------------------------------
// Backfill Types
// -----------------------------------------------------------------------------

// Fill is one OrderFilledEvent from the order book subgraph. IDs are ordering
// keys: the subgraph serves fills in ascending id order, which the extractor's
// resume cursor depends on.
type Fill struct {
	ID           string // Primary key and extraction cursor
	TxHash       string
	Timestamp    int64 // Chain timestamp (seconds since epoch)
	Maker        string
	Taker        string
	MakerAssetID string
	TakerAssetID string
	MakerAmount  int64
	TakerAmount  int64
	Fee          int64
}
