package market

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MarketsTracked tracks the number of markets in the registry.
	MarketsTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "forecastd_markets_tracked",
		Help: "Number of markets in the registry",
	})

	// OptionPrice exposes the live price of every market option.
	OptionPrice = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "forecastd_option_price",
			Help: "Current option price (0..1)",
		},
		[]string{"market_id", "option_id"},
	)

	// MarketVolume exposes cumulative traded volume per market.
	MarketVolume = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "forecastd_market_volume_usd",
			Help: "Cumulative traded volume per market",
		},
		[]string{"market_id"},
	)

	// TradesApplied counts trades applied to the registry by side.
	TradesApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forecastd_market_trades_applied_total",
			Help: "Trades applied to market state",
		},
		[]string{"side"},
	)
)
