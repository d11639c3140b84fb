package types

import "time"

// MarketStatus is the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusTrading  MarketStatus = "trading"
	MarketStatusClosed   MarketStatus = "closed"
	MarketStatusResolved MarketStatus = "resolved"
)

// Option is one mutually exclusive outcome within a market.
type Option struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Price       float64 `json:"price"`       // 0..1, derived from the pricing engine
	Volume      float64 `json:"volume"`      // cumulative traded currency
	Shares      float64 `json:"shares"`      // aggregate user position in shares
	PriceChange float64 `json:"priceChange"` // percentage, informational only
}

// Market holds the displayable state of a prediction market.
// Option prices always sum to 1 (within floating tolerance) after any trade.
type Market struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	Description    string       `json:"description,omitempty"`
	Category       string       `json:"category,omitempty"`
	Status         MarketStatus `json:"status"`
	EndTime        time.Time    `json:"endTime"`
	Options        []Option     `json:"options"`
	TotalVolume    float64      `json:"totalVolume"`
	TotalValue     float64      `json:"totalValue"`
	Participants   int          `json:"participants"`
	WinnerOptionID string       `json:"winnerOptionId,omitempty"` // set once resolved
}

// Option returns the option with the given ID, or nil if not present.
func (m *Market) Option(optionID string) *Option {
	for i := range m.Options {
		if m.Options[i].ID == optionID {
			return &m.Options[i]
		}
	}
	return nil
}

// OptionIndex returns the index of the option with the given ID, or -1.
func (m *Market) OptionIndex(optionID string) int {
	for i := range m.Options {
		if m.Options[i].ID == optionID {
			return i
		}
	}
	return -1
}

// PriceSum returns the sum of all option prices.
func (m *Market) PriceSum() float64 {
	sum := 0.0
	for i := range m.Options {
		sum += m.Options[i].Price
	}
	return sum
}
