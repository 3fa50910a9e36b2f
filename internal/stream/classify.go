package stream

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/quantfield/polymarket-data/internal/model"
)

// Kind identifies the classified shape of a feed event.
type Kind int

const (
	// KindUnknown marks events the collector drops without storing.
	KindUnknown Kind = iota
	KindBook
	KindTrade
	KindPriceChange
)

func (k Kind) String() string {
	switch k {
	case KindBook:
		return "book"
	case KindTrade:
		return "trade"
	case KindPriceChange:
		return "price_change"
	default:
		return "unknown"
	}
}

// ClassifiedEvent is one feed event after classification. Exactly one of
// Book, Trade, and Changes is populated, selected by Kind.
type ClassifiedEvent struct {
	Kind    Kind
	Book    model.BookSnapshot
	Trade   model.Trade
	Changes []model.PriceChange
}

// wireMessage mirrors the push feed payload. The feed reuses a single
// shape across event types; which fields are present depends on
// event_type. Prices, sizes and timestamps all arrive as strings.
type wireMessage struct {
	EventType    string             `json:"event_type"`
	Market       string             `json:"market"`
	AssetID      string             `json:"asset_id"`
	Timestamp    string             `json:"timestamp"`
	Bids         []model.PriceLevel `json:"bids"`
	Asks         []model.PriceLevel `json:"asks"`
	Price        string             `json:"price"`
	Size         string             `json:"size"`
	Side         string             `json:"side"`
	FeeRateBps   string             `json:"fee_rate_bps"`
	PriceChanges []wirePriceChange  `json:"price_changes"`
}

type wirePriceChange struct {
	AssetID string `json:"asset_id"`
	Price   string `json:"price"`
	Size    string `json:"size"`
	Side    string `json:"side"`
	BestBid string `json:"best_bid"`
	BestAsk string `json:"best_ask"`
}

// Classify parses one raw feed frame into classified events. The feed
// delivers either a single object or an array of objects; both shapes
// are accepted. Events with an unrecognized event_type, or trades whose
// price falls outside (0, 1), come back as KindUnknown so the caller
// can count the drop. An error means the frame was not valid JSON.
func Classify(data []byte) ([]ClassifiedEvent, error) {
	var msgs []wireMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		var single wireMessage
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("decoding feed frame: %w", err)
		}
		msgs = []wireMessage{single}
	}

	events := make([]ClassifiedEvent, 0, len(msgs))
	for _, m := range msgs {
		events = append(events, classifyOne(m))
	}
	return events, nil
}

func classifyOne(m wireMessage) ClassifiedEvent {
	switch m.EventType {
	case "book":
		return ClassifiedEvent{
			Kind: KindBook,
			Book: model.NewBookSnapshot(m.AssetID, parseMillis(m.Timestamp), "ws", m.Bids, m.Asks),
		}
	case "last_trade_price":
		price := parseFloat(m.Price)
		if price <= 0 || price >= 1 {
			return ClassifiedEvent{Kind: KindUnknown}
		}
		return ClassifiedEvent{
			Kind: KindTrade,
			Trade: model.Trade{
				TokenID:    m.AssetID,
				Timestamp:  parseMillis(m.Timestamp),
				Price:      price,
				Size:       parseFloat(m.Size),
				Side:       m.Side,
				FeeRateBps: m.FeeRateBps,
			},
		}
	case "price_change":
		ts := parseMillis(m.Timestamp)
		changes := make([]model.PriceChange, 0, len(m.PriceChanges))
		for _, c := range m.PriceChanges {
			changes = append(changes, model.PriceChange{
				TokenID:   c.AssetID,
				Timestamp: ts,
				Price:     parseFloat(c.Price),
				Size:      parseFloat(c.Size),
				Side:      c.Side,
				BestBid:   optionalFloat(c.BestBid),
				BestAsk:   optionalFloat(c.BestAsk),
			})
		}
		return ClassifiedEvent{Kind: KindPriceChange, Changes: changes}
	default:
		return ClassifiedEvent{Kind: KindUnknown}
	}
}

func parseMillis(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func optionalFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
