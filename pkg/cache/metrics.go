package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nftorders_cache_hits_total",
		Help: "Total number of cache hits",
	})

	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nftorders_cache_misses_total",
		Help: "Total number of cache misses",
	})

	CacheSetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nftorders_cache_sets_total",
		Help: "Total number of cache sets",
	})

	CacheSetsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nftorders_cache_sets_dropped_total",
		Help: "Total number of cache writes rejected by admission",
	})

	CacheDeletesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nftorders_cache_deletes_total",
		Help: "Total number of cache deletes",
	})

	CacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nftorders_cache_operation_duration_seconds",
			Help:    "Duration of cache operations",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005},
		},
		[]string{"operation"},
	)
)
