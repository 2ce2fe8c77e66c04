package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the status resolver.
type Metrics struct {
	// Authority request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	RetriesTotal    prometheus.Counter

	// Breaker metrics
	BreakerState       prometheus.Gauge
	BreakerTransitions *prometheus.CounterVec

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewMetrics creates a metrics collector registered on reg. Passing nil
// uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baselinegate_authority_requests_total",
				Help: "Total requests to the status authority by outcome",
			},
			[]string{"outcome"},
		),
		RequestDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "baselinegate_authority_request_duration_seconds",
				Help:    "Status authority request duration",
				Buckets: prometheus.DefBuckets,
			},
		),
		RetriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "baselinegate_authority_retries_total",
				Help: "Total retry attempts against the status authority",
			},
		),
		BreakerState: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "baselinegate_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
		),
		BreakerTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baselinegate_breaker_transitions_total",
				Help: "Circuit breaker state transitions",
			},
			[]string{"from", "to"},
		),
		CacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "baselinegate_status_cache_hits_total",
				Help: "Status cache hits",
			},
		),
		CacheMisses: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "baselinegate_status_cache_misses_total",
				Help: "Status cache misses",
			},
		),
	}
}

// RecordOutcome increments the request counter for an outcome label.
func (m *Metrics) RecordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(outcome).Inc()
}

// RecordDuration observes a request duration in seconds.
func (m *Metrics) RecordDuration(seconds float64) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(seconds)
}

// RecordRetry increments the retry counter.
func (m *Metrics) RecordRetry() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// RecordBreakerTransition records a breaker state change.
func (m *Metrics) RecordBreakerTransition(from, to string, state float64) {
	if m == nil {
		return
	}
	m.BreakerTransitions.WithLabelValues(from, to).Inc()
	m.BreakerState.Set(state)
}

// RecordCache records a cache hit or miss.
func (m *Metrics) RecordCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Inc()
	} else {
		m.CacheMisses.Inc()
	}
}
