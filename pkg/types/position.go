package types

import "time"

// PositionStatus is the lifecycle state of a position.
type PositionStatus string

const (
	PositionStatusActive  PositionStatus = "active"
	PositionStatusSettled PositionStatus = "settled"
)

// Position is a holder's accumulated stake in one (market, option) pair.
// Invariant: Amount == Shares * AvgPrice at creation and after any
// weighted-average merge.
type Position struct {
	ID          string         `json:"id"`
	MarketID    string         `json:"marketId"`
	MarketTitle string         `json:"marketTitle,omitempty"`
	OptionID    string         `json:"optionId"`
	Amount      float64        `json:"amount"`   // currency invested
	Shares      float64        `json:"shares"`   // shares held
	AvgPrice    float64        `json:"avgPrice"` // amount-weighted entry price
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Status      PositionStatus `json:"status"`
	RealizedPnL float64        `json:"realizedPnl"` // accrued on sells and settlement
}

// MarkToMarket returns the unrealized P&L of the position at the given price.
func (p *Position) MarkToMarket(currentPrice float64) float64 {
	return p.Shares*currentPrice - p.Amount
}
