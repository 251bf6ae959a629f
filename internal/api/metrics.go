package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks marketplace API responses by endpoint and status.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftorders_api_requests_total",
			Help: "Total number of marketplace API requests",
		},
		[]string{"endpoint", "status"},
	)

	// RetriesTotal tracks retried requests by endpoint.
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftorders_api_retries_total",
			Help: "Total number of marketplace API retries",
		},
		[]string{"endpoint"},
	)

	// RequestDuration tracks end-to-end latency including retries.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nftorders_api_request_duration_seconds",
			Help:    "Duration of marketplace API calls including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// FeeConfigCacheHitsTotal tracks asset-contract and token lookups served from cache.
	FeeConfigCacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftorders_api_fee_config_cache_hits_total",
			Help: "Total number of fee configuration cache hits",
		},
		[]string{"kind"},
	)

	// FeeConfigCacheMissesTotal tracks lookups that went to the API.
	FeeConfigCacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftorders_api_fee_config_cache_misses_total",
			Help: "Total number of fee configuration cache misses",
		},
		[]string{"kind"},
	)
)
