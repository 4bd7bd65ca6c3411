package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains dispatch metrics.
type Metrics struct {
	// dispatchTotal counts dispatch attempts by result.
	dispatchTotal *prometheus.CounterVec

	// callDuration measures authorization call duration by gRPC code.
	callDuration *prometheus.HistogramVec

	// inflightCalls tracks the number of in-flight authorization calls.
	inflightCalls prometheus.Gauge

	// breakerState tracks the circuit breaker state (0 closed, 1 half-open,
	// 2 open).
	breakerState prometheus.Gauge
}

// NewMetrics creates new dispatch metrics registered with the default
// registerer.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates a new Metrics instance with a custom
// registerer.
func NewMetricsWithRegisterer(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "authgw"
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{}

	m.dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "total",
			Help:      "Total number of authorization dispatch attempts",
		},
		[]string{"result"},
	)

	m.callDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "call_duration_seconds",
			Help:      "Authorization call duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"code"},
	)

	m.inflightCalls = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "inflight_calls",
			Help:      "Number of in-flight authorization calls",
		},
	)

	m.breakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "breaker_state",
			Help:      "Dispatch circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
	)

	collectors := []prometheus.Collector{
		m.dispatchTotal,
		m.callDuration,
		m.inflightCalls,
		m.breakerState,
	}
	for _, c := range collectors {
		_ = registerer.Register(c)
	}

	return m
}

// Init pre-initializes common label combinations with zero values so the
// metrics appear in scrape output immediately after startup.
func (m *Metrics) Init() {
	if m == nil {
		return
	}
	for _, result := range []string{"dispatched", "failed", "rejected"} {
		m.dispatchTotal.WithLabelValues(result)
	}
}

// RecordDispatch records a dispatch attempt.
func (m *Metrics) RecordDispatch(result string) {
	if m == nil || m.dispatchTotal == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(result).Inc()
}

// RecordCall records a completed authorization call.
func (m *Metrics) RecordCall(code string, duration time.Duration) {
	if m == nil || m.callDuration == nil {
		return
	}
	m.callDuration.WithLabelValues(code).Observe(duration.Seconds())
}

// IncInflight increments the in-flight call gauge.
func (m *Metrics) IncInflight() {
	if m == nil || m.inflightCalls == nil {
		return
	}
	m.inflightCalls.Inc()
}

// DecInflight decrements the in-flight call gauge.
func (m *Metrics) DecInflight() {
	if m == nil || m.inflightCalls == nil {
		return
	}
	m.inflightCalls.Dec()
}

// SetBreakerState records the circuit breaker state.
func (m *Metrics) SetBreakerState(state int) {
	if m == nil || m.breakerState == nil {
		return
	}
	m.breakerState.Set(float64(state))
}
