// Package metrics provides Prometheus instrumentation for the dashboard core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SnapshotsApplied counts market and rate snapshots that replaced the
	// previous one, partitioned by kind ("market", "rates").
	SnapshotsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coindash_snapshots_applied_total",
		Help: "Total number of snapshots applied",
	}, []string{"kind"})

	// SnapshotsDiscarded counts snapshots that arrived after a newer one or
	// failed validation.
	SnapshotsDiscarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coindash_snapshots_discarded_total",
		Help: "Total number of stale or invalid snapshots discarded",
	}, []string{"kind"})

	// FetchFailures counts provider errors, the last good snapshot is kept.
	FetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coindash_fetch_failures_total",
		Help: "Total number of failed market or rate fetches",
	}, []string{"kind"})

	// MarketCoins tracks the number of coins in the market snapshot in use.
	MarketCoins = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coindash_market_coins",
		Help: "Number of coins in the current market snapshot",
	})

	// TransactionsRecorded counts transactions appended to the ledger by side.
	TransactionsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coindash_transactions_recorded_total",
		Help: "Total number of transactions recorded",
	}, []string{"side"})

	// TransactionsRejected counts transactions refused by the ledger by reason.
	TransactionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coindash_transactions_rejected_total",
		Help: "Total number of transactions rejected",
	}, []string{"reason"})

	// Recomputations counts published views.
	Recomputations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coindash_recomputations_total",
		Help: "Total number of dashboard view recomputations",
	})

	// RecomputeDuration tracks the time spent deriving a view.
	RecomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "coindash_recompute_duration_seconds",
		Help:    "Dashboard view recomputation duration in seconds",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
