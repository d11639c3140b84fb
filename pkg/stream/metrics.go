package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SubscribersGauge tracks connected stream clients.
	SubscribersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "forecastd_stream_subscribers",
		Help: "Number of connected price stream clients",
	})

	// BroadcastsTotal counts price snapshot broadcasts.
	BroadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forecastd_stream_broadcasts_total",
		Help: "Total price snapshot broadcasts",
	})

	// MessagesSentTotal counts frames delivered to clients.
	MessagesSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forecastd_stream_messages_sent_total",
		Help: "Total WebSocket frames delivered to clients",
	})
)
