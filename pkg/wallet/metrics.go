package wallet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BalanceGauge tracks the simulated wallet balance.
	BalanceGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "forecastd_wallet_balance_usd",
		Help: "Current simulated wallet balance",
	})

	// ConnectedGauge is 1 while the wallet is connected.
	ConnectedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "forecastd_wallet_connected",
		Help: "Whether the wallet is connected (1) or not (0)",
	})

	// DebitsTotal counts successful balance deductions.
	DebitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forecastd_wallet_debits_total",
		Help: "Total successful balance deductions",
	})

	// CreditsTotal counts balance credits.
	CreditsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forecastd_wallet_credits_total",
		Help: "Total balance credits",
	})
)
