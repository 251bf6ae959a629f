package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// EventsAppliedTotal tracks stream events by type and what happened to them.
	EventsAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nftorders_app_stream_events_total",
		Help: "Total number of order stream events processed by outcome",
	}, []string{"event_type", "outcome"})
)
