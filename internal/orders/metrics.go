package orders

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersBuiltTotal tracks orders assembled, by side.
	OrdersBuiltTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftorders_orders_built_total",
			Help: "Total number of orders built",
		},
		[]string{"side"},
	)

	// OrdersPostedTotal tracks orders accepted by the marketplace, by side.
	OrdersPostedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftorders_orders_posted_total",
			Help: "Total number of signed orders posted to the marketplace",
		},
		[]string{"side"},
	)

	// OrderErrorsTotal tracks order creation failures by stage.
	OrderErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftorders_order_errors_total",
			Help: "Total number of order creation failures",
		},
		[]string{"stage"},
	)

	// FulfillmentsTotal tracks fulfillment attempts by outcome.
	FulfillmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftorders_fulfillments_total",
			Help: "Total number of fulfillment attempts",
		},
		[]string{"outcome"},
	)

	// OrderCreateDuration tracks the build-sign-post latency.
	OrderCreateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nftorders_order_create_duration_seconds",
		Help:    "Duration of building, signing and posting an order",
		Buckets: prometheus.DefBuckets,
	})
)
