package confirm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// ConfirmationsTotal counts mined transactions by outcome.
	ConfirmationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nftorders_confirm_transactions_total",
		Help: "Total number of transactions observed as mined",
	}, []string{"status"})

	// PendingWaiters tracks callers blocked in Wait.
	PendingWaiters = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nftorders_confirm_pending_waiters",
		Help: "Number of callers waiting for a receipt",
	})

	// PollErrorsTotal counts receipt lookups that failed for reasons other than pending.
	PollErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nftorders_confirm_poll_errors_total",
		Help: "Total number of failed receipt lookups",
	})

	// PollDuration tracks receipt lookup latency.
	PollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nftorders_confirm_poll_duration_seconds",
		Help:    "Time spent fetching a transaction receipt",
		Buckets: prometheus.DefBuckets,
	})
)
