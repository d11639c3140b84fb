package synthetic

import (
	"time"

	"github.com/forecastd/forecastd/pkg/types"
)

const (
	bookLevels     = 8
	bookHalfSpread = 0.01 // half of the 2% total spread
	bookLevelStep  = 0.005
	bookSizeBase   = 5000.0
	bookSizeSpan   = 50000.0
)

// OrderBook generates a synthetic book around the given option price:
// eight bid levels stepping down from just below the price and eight ask
// levels stepping up from just above it, with sizes decaying away from
// the touch. Every bid stays strictly below every ask.
func (g *Generator) OrderBook(marketID, optionID string, price float64, now time.Time) *types.OrderBook {
	// Keep the whole ladder inside (0, 1) even for extreme prices.
	mid := clamp(price, 0.02, 0.98)

	book := &types.OrderBook{
		MarketID:  marketID,
		OptionID:  optionID,
		Bids:      make([]types.PriceLevel, 0, bookLevels),
		Asks:      make([]types.PriceLevel, 0, bookLevels),
		Generated: now,
	}

	for i := 0; i < bookLevels; i++ {
		depth := 1 - float64(i)/float64(bookLevels)

		// Levels that would leave (0, 1) are dropped, so books near the
		// price extremes are shallower on one side.
		if bidPrice := round3(mid - bookHalfSpread - float64(i)*bookLevelStep); bidPrice > 0 {
			bidShares := round2((bookSizeBase + g.rng.Float64()*bookSizeSpan) * depth)
			book.Bids = append(book.Bids, types.PriceLevel{
				Price:  bidPrice,
				Shares: bidShares,
				Total:  round2(bidPrice * bidShares),
			})
		}

		if askPrice := round3(mid + bookHalfSpread + float64(i)*bookLevelStep); askPrice < 1 {
			askShares := round2((bookSizeBase + g.rng.Float64()*bookSizeSpan) * depth)
			book.Asks = append(book.Asks, types.PriceLevel{
				Price:  askPrice,
				Shares: askShares,
				Total:  round2(askPrice * askShares),
			})
		}
	}

	book.Spread = round3(book.BestAsk() - book.BestBid())

	return book
}

func round3(v float64) float64 {
	return float64(int64(v*1000+0.5)) / 1000
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
