package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// ActiveConnections is 1 while the stream socket is up.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nftorders_stream_active_connections",
		Help: "Number of active order stream connections",
	})

	// ReconnectAttemptsTotal tracks reconnection attempts.
	ReconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nftorders_stream_reconnect_attempts_total",
		Help: "Total number of order stream reconnection attempts",
	})

	// ReconnectFailuresTotal tracks failed reconnection attempts.
	ReconnectFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nftorders_stream_reconnect_failures_total",
		Help: "Total number of order stream reconnection failures",
	})

	// EventsReceivedTotal tracks decoded events by type.
	EventsReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nftorders_stream_events_received_total",
		Help: "Total number of order events received",
	}, []string{"event_type"})

	// EventsDroppedTotal tracks events discarded before delivery.
	EventsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nftorders_stream_events_dropped_total",
		Help: "Total number of order events dropped",
	}, []string{"reason"})

	// SubscriptionCount tracks subscribed collections.
	SubscriptionCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nftorders_stream_subscription_count",
		Help: "Number of subscribed collections",
	})

	// ConnectionDuration tracks socket lifetime.
	ConnectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nftorders_stream_connection_duration_seconds",
		Help:    "Duration of order stream connections before disconnect",
		Buckets: []float64{60, 300, 600, 1800, 3600, 7200, 14400, 28800, 43200, 86400},
	})
)
