package market

import (
	"fmt"
	"time"

	"github.com/forecastd/forecastd/pkg/types"
)

// SeedMarkets returns the demo market catalog. Prices are seeds: the
// registry derives its LMSR quantity state from them on Add.
func SeedMarkets(now time.Time) []*types.Market {
	return []*types.Market{
		{
			ID:          "btc-120k-2026",
			Title:       "Will Bitcoin reach $120,000 by the end of 2026?",
			Description: "Resolves YES if BTC/USD trades at or above $120,000 on any major exchange before Jan 1 2027.",
			Category:    "crypto",
			Status:      types.MarketStatusTrading,
			EndTime:     now.AddDate(0, 2, 0),
			Options: []types.Option{
				{ID: "yes", Label: "Yes", Price: 0.70, PriceChange: 5.2},
				{ID: "no", Label: "No", Price: 0.30, PriceChange: -5.2},
			},
			TotalVolume:  8400000,
			TotalValue:   2100000,
			Participants: 12847,
		},
		{
			ID:          "us-election-2028",
			Title:       "Who will win the 2028 US presidential election?",
			Description: "Resolves to the candidate certified as the winner by the Electoral College.",
			Category:    "politics",
			Status:      types.MarketStatusTrading,
			EndTime:     now.AddDate(2, 0, 0),
			Options: []types.Option{
				{ID: "rep", Label: "Republican nominee", Price: 0.45, PriceChange: -2.1},
				{ID: "dem", Label: "Democratic nominee", Price: 0.42, PriceChange: 1.8},
				{ID: "other", Label: "Other candidate", Price: 0.13, PriceChange: 0.3},
			},
			TotalVolume:  15420000,
			TotalValue:   8950000,
			Participants: 28394,
		},
		{
			ID:          "eth-flip-btc",
			Title:       "Will Ethereum flip Bitcoin by market cap before 2030?",
			Description: "Resolves YES if ETH market capitalization exceeds BTC market capitalization at any point before Jan 1 2030.",
			Category:    "crypto",
			Status:      types.MarketStatusTrading,
			EndTime:     now.AddDate(3, 0, 0),
			Options: []types.Option{
				{ID: "yes", Label: "Yes", Price: 0.18, PriceChange: 0.9},
				{ID: "no", Label: "No", Price: 0.82, PriceChange: -0.9},
			},
			TotalVolume:  3150000,
			TotalValue:   1240000,
			Participants: 5210,
		},
	}
}

// Seed registers the demo catalog into a registry.
func Seed(r *Registry, now time.Time) error {
	for _, m := range SeedMarkets(now) {
		if err := r.Add(m); err != nil {
			return fmt.Errorf("seed market %s: %w", m.ID, err)
		}
	}

	return nil
}
