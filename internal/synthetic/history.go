// Package synthetic generates plausible order book and price history data
// around live option prices. The output is display data, not tradable
// liquidity; execution always prices against the LMSR engine.
package synthetic

import (
	"math/rand"
	"time"

	"github.com/forecastd/forecastd/pkg/types"
)

// timeframeSpec fixes the sample count and spacing for one timeframe.
type timeframeSpec struct {
	points   int
	interval time.Duration
}

var timeframes = map[types.Timeframe]timeframeSpec{
	types.Timeframe1H:  {points: 60, interval: time.Minute},
	types.Timeframe6H:  {points: 72, interval: 5 * time.Minute},
	types.Timeframe1D:  {points: 96, interval: 15 * time.Minute},
	types.Timeframe1W:  {points: 168, interval: time.Hour},
	types.Timeframe1M:  {points: 120, interval: 6 * time.Hour},
	types.TimeframeAll: {points: 168, interval: time.Hour},
}

const (
	historyStartOffset = 0.075 // max random offset of the series start
	historyNoise       = 0.04  // max per-step relative move
	priceFloor         = 0.01
	priceCeil          = 0.99
)

// Generator produces synthetic series from a seeded source, so the same
// seed yields the same data.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator seeded from seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// History generates a price series ending at currentPrice at time now.
// The series starts near the current price, wanders by small random
// steps, and is pulled linearly toward the current price so the last
// point lands on it exactly.
func (g *Generator) History(currentPrice float64, timeframe types.Timeframe, now time.Time) []types.PricePoint {
	spec, ok := timeframes[timeframe]
	if !ok {
		spec = timeframes[types.Timeframe1D]
	}

	start := clamp(currentPrice+(g.rng.Float64()*2-1)*historyStartOffset, priceFloor, priceCeil)

	points := make([]types.PricePoint, spec.points)
	price := start

	for i := range points {
		progress := float64(i) / float64(spec.points-1)

		// Random walk with a linear pull toward the live price.
		noise := (g.rng.Float64()*2 - 1) * historyNoise * price
		price = clamp(price+noise, priceFloor, priceCeil)
		blended := price*(1-progress) + currentPrice*progress

		points[i] = types.PricePoint{
			Time:  now.Add(-time.Duration(spec.points-1-i) * spec.interval),
			Price: clamp(blended, priceFloor, priceCeil),
		}
	}

	points[len(points)-1].Price = currentPrice

	return points
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
