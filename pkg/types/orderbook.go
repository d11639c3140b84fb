package types

import "time"

// PriceLevel is a single synthetic order book level.
type PriceLevel struct {
	Price  float64 `json:"price"`
	Shares float64 `json:"shares"`
	Total  float64 `json:"total"` // Price * Shares
}

// OrderBook is a synthetic order book snapshot for one market option.
// Bids are sorted best (highest) first, asks best (lowest) first, and
// every bid price is strictly below every ask price.
type OrderBook struct {
	MarketID  string       `json:"marketId"`
	OptionID  string       `json:"optionId"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Spread    float64      `json:"spread"` // best ask - best bid
	Generated time.Time    `json:"generated"`
}

// BestBid returns the highest bid price, or 0 if the book is empty.
func (b *OrderBook) BestBid() float64 {
	if len(b.Bids) == 0 {
		return 0
	}
	return b.Bids[0].Price
}

// BestAsk returns the lowest ask price, or 0 if the book is empty.
func (b *OrderBook) BestAsk() float64 {
	if len(b.Asks) == 0 {
		return 0
	}
	return b.Asks[0].Price
}

// Timeframe selects the window of a synthetic price history.
type Timeframe string

const (
	Timeframe1H  Timeframe = "1H"
	Timeframe6H  Timeframe = "6H"
	Timeframe1D  Timeframe = "1D"
	Timeframe1W  Timeframe = "1W"
	Timeframe1M  Timeframe = "1M"
	TimeframeAll Timeframe = "ALL"
)

// PricePoint is one sample of a synthetic price history series.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}
