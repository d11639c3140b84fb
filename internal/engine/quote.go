package engine

import (
	"fmt"

	"github.com/forecastd/forecastd/pkg/types"
)

// Quote is an exact LMSR preview of a trade: cost, fee, shares, and the
// post-trade price of the traded option. Execution itself fills at the
// pre-trade price; the quote shows what the trade will do to the market.
type Quote struct {
	MarketID    string     `json:"marketId"`
	OptionID    string     `json:"optionId"`
	Side        types.Side `json:"side"`
	Amount      float64    `json:"amount"`
	Shares      float64    `json:"shares"`
	Fee         float64    `json:"fee"`
	Total       float64    `json:"total"` // buy: amount+fee; sell: net proceeds
	PriceBefore float64    `json:"priceBefore"`
	PriceAfter  float64    `json:"priceAfter"`
}

// QuoteBuy previews spending budget USD on an option: the shares that
// budget buys along the LMSR cost curve and the resulting price.
func (e *Executor) QuoteBuy(marketID, optionID string, budget float64) (*Quote, error) {
	if budget <= 0 {
		return nil, types.NewTradeError(types.ErrInvalidAmount,
			fmt.Sprintf("budget must be positive, got %.2f", budget))
	}

	quantities, idx, before, err := e.quoteState(marketID, optionID)
	if err != nil {
		return nil, err
	}

	shares := e.engine.SharesForCost(quantities, idx, budget)
	fee := budget * e.policy.FeeRate

	quantities[idx] += shares
	after := e.engine.Prices(quantities)[idx]

	return &Quote{
		MarketID:    marketID,
		OptionID:    optionID,
		Side:        types.SideBuy,
		Amount:      budget,
		Shares:      shares,
		Fee:         fee,
		Total:       budget + fee,
		PriceBefore: before,
		PriceAfter:  after,
	}, nil
}

// QuoteSell previews liquidating shares of an option: the exact LMSR
// proceeds and the resulting price.
func (e *Executor) QuoteSell(marketID, optionID string, shares float64) (*Quote, error) {
	if shares <= 0 {
		return nil, types.NewTradeError(types.ErrInvalidAmount,
			fmt.Sprintf("shares must be positive, got %.4f", shares))
	}

	quantities, idx, before, err := e.quoteState(marketID, optionID)
	if err != nil {
		return nil, err
	}

	// Selling is a negative quantity move; proceeds are the negated cost.
	proceeds := -e.engine.Cost(quantities, idx, -shares)
	fee := proceeds * e.policy.FeeRate

	quantities[idx] -= shares
	after := e.engine.Prices(quantities)[idx]

	return &Quote{
		MarketID:    marketID,
		OptionID:    optionID,
		Side:        types.SideSell,
		Amount:      proceeds,
		Shares:      shares,
		Fee:         fee,
		Total:       proceeds - fee,
		PriceBefore: before,
		PriceAfter:  after,
	}, nil
}

func (e *Executor) quoteState(marketID, optionID string) ([]float64, int, float64, error) {
	m, ok := e.registry.Get(marketID)
	if !ok {
		return nil, 0, 0, types.NewTradeError(types.ErrMarketNotFound,
			fmt.Sprintf("market %s not found", marketID))
	}

	idx := m.OptionIndex(optionID)
	if idx < 0 {
		return nil, 0, 0, types.NewTradeError(types.ErrOptionNotFound,
			fmt.Sprintf("option %s not found in market %s", optionID, marketID))
	}

	quantities, _ := e.registry.Quantities(marketID)

	return quantities, idx, m.Options[idx].Price, nil
}
