package wallet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// NativeBalance tracks the native balance available for gas and ether listings.
	NativeBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nftorders_wallet_native_balance",
		Help: "Current native balance in wallet (whole units)",
	})

	// PaymentTokenBalance tracks the balance of the offer payment token.
	PaymentTokenBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nftorders_wallet_payment_token_balance",
		Help: "Current payment token balance in wallet (whole units)",
	})

	// PaymentTokenAllowance tracks the payment token allowance approved to the transfer proxy.
	PaymentTokenAllowance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nftorders_wallet_payment_token_allowance",
		Help: "Payment token allowance approved to the token transfer proxy (whole units)",
	})

	// LastUpdateTimestamp tracks when wallet data was last successfully updated.
	LastUpdateTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nftorders_wallet_last_update_timestamp",
		Help: "Unix timestamp of last successful wallet update",
	})

	// UpdateErrorsTotal tracks failed wallet update attempts.
	UpdateErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nftorders_wallet_update_errors_total",
		Help: "Total number of failed wallet update attempts",
	})

	// UpdateDuration tracks how long wallet updates take.
	UpdateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nftorders_wallet_update_duration_seconds",
		Help:    "Time taken to fetch and update wallet data",
		Buckets: prometheus.DefBuckets,
	})
)
