package matching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MatchChecksTotal tracks the number of buy/sell pairs validated.
	MatchChecksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nftorders_match_checks_total",
		Help: "Total number of buy/sell pairs checked for matchability",
	})

	// MatchRejectionsTotal tracks rejected pairs by the rule that failed.
	MatchRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftorders_match_rejections_total",
			Help: "Total number of rejected buy/sell pairs by failing rule",
		},
		[]string{"rule"},
	)
)
