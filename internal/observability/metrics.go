// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Admission metrics
	CandidatesEvaluated prometheus.Counter
	CandidatesAdmitted  prometheus.Counter
	CandidatesRejected  *prometheus.CounterVec // by reason
	CandidatesReplayed  prometheus.Counter
	DecisionLatency     prometheus.Histogram

	// Position metrics
	OpenPositions   prometheus.Gauge
	PositionsClosed *prometheus.CounterVec // by exit reason
	ProfitLossPct   prometheus.Histogram

	// Wallet cache metrics
	WalletCacheHits   prometheus.Counter
	WalletCacheMisses prometheus.Counter

	// Feed metrics
	TicksReceived  prometheus.Counter
	FeedReconnects prometheus.Counter

	// Storage metrics
	StoreErrors *prometheus.CounterVec // by store
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "wallet_follow_engine"
	}

	return &Metrics{
		CandidatesEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "candidates_evaluated_total",
			Help:      "Total number of candidates evaluated",
		}),
		CandidatesAdmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "candidates_admitted_total",
			Help:      "Total number of candidates admitted (GO)",
		}),
		CandidatesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "candidates_rejected_total",
			Help:      "Total number of candidates rejected (NO_GO) by reason",
		}, []string{"reason"}),
		CandidatesReplayed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "candidates_replayed_total",
			Help:      "Total number of candidates resolved from a recorded outcome",
		}),
		DecisionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "decision_latency_seconds",
			Help:      "Admission decision latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		OpenPositions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "open",
			Help:      "Number of currently tracked open positions",
		}),
		PositionsClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "closed_total",
			Help:      "Total number of positions closed by exit reason",
		}, []string{"reason"}),
		ProfitLossPct: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "profit_loss_pct",
			Help:      "Realized profit/loss percent per closed position",
			Buckets:   []float64{-20, -10, -5, -2, -1, -0.5, 0, 0.5, 1, 2, 5, 10, 20, 50},
		}),

		WalletCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet_cache",
			Name:      "hits_total",
			Help:      "Total wallet query cache hits",
		}),
		WalletCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet_cache",
			Name:      "misses_total",
			Help:      "Total wallet query cache misses",
		}),

		TicksReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "ticks_received_total",
			Help:      "Total price ticks received from the feed",
		}),
		FeedReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Total feed reconnect attempts",
		}),

		StoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "errors_total",
			Help:      "Total storage operation errors by store",
		}, []string{"store"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordOutcome updates admission counters for one decided candidate.
// Replayed outcomes count only as replays; they were already counted
// when first decided.
func (m *Metrics) RecordOutcome(decision, reason string, replayed bool) {
	m.CandidatesEvaluated.Inc()
	if replayed {
		m.CandidatesReplayed.Inc()
		return
	}
	if decision == "GO" {
		m.CandidatesAdmitted.Inc()
	} else {
		m.CandidatesRejected.WithLabelValues(reason).Inc()
	}
}

// RecordClose updates position counters for one archived position.
func (m *Metrics) RecordClose(exitReason string, profitLossPct float64) {
	m.PositionsClosed.WithLabelValues(exitReason).Inc()
	m.ProfitLossPct.Observe(profitLossPct)
}
