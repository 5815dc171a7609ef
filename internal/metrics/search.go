package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "findex",
			Name:      "search_requests_total",
			Help:      "Total searches by winning strategy and outcome",
		},
		[]string{"strategy", "status"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "findex",
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"strategy"},
	)

	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "findex",
			Name:      "cache_total",
			Help:      "Cache hits and misses by tier",
		},
		[]string{"tier", "result"}, // result: "hit" / "miss"
	)

	CacheEvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "findex",
			Name:      "cache_evictions_total",
			Help:      "Memory tier evictions by outcome",
		},
		[]string{"outcome"}, // "demoted" / "dropped"
	)

	DependencyCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "findex",
			Name:      "dependency_calls_total",
			Help:      "Outbound dependency calls by status",
		},
		[]string{"dependency", "status"},
	)

	DependencyCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "findex",
			Name:      "dependency_call_duration_seconds",
			Help:      "Outbound dependency call duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"dependency"},
	)

	BreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "findex",
			Name:      "breaker_transitions_total",
			Help:      "Circuit breaker state transitions",
		},
		[]string{"dependency", "to"},
	)

	FallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "findex",
			Name:      "fallbacks_total",
			Help:      "Fallback chain steps executed",
		},
		[]string{"step", "outcome"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search Prometheus metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(CacheTotal)
	prometheus.MustRegister(CacheEvictionsTotal)
	prometheus.MustRegister(DependencyCallsTotal)
	prometheus.MustRegister(DependencyCallDuration)
	prometheus.MustRegister(BreakerTransitionsTotal)
	prometheus.MustRegister(FallbacksTotal)
	searchMetricsRegistered = true
}
