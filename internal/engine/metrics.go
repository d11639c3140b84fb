package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TradesStarted counts trades that passed validation and went pending.
	TradesStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forecastd_trades_started_total",
		Help: "Trades that entered the pending state",
	}, []string{"side"})

	// TradesSettled counts settlement outcomes.
	TradesSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forecastd_trades_settled_total",
		Help: "Settled trades by side and final status",
	}, []string{"side", "status"})

	// FeesCollected accumulates fees charged on completed trades.
	FeesCollected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forecastd_trade_fees_usd_total",
		Help: "Total fees charged on completed trades",
	})

	// SettlementDuration observes end-to-end settlement time.
	SettlementDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "forecastd_trade_settlement_seconds",
		Help:    "Time from debit to settlement",
		Buckets: prometheus.DefBuckets,
	})
)
