package filter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains filter metrics.
type Metrics struct {
	// decisionTotal counts terminal request outcomes.
	decisionTotal *prometheus.CounterVec

	// authorizationDuration measures time from dispatch to reply.
	authorizationDuration prometheus.Histogram

	// headerMappingBytes observes the per-request header mapping size.
	headerMappingBytes prometheus.Histogram

	// payloadBytes observes the serialized authorization payload size.
	payloadBytes prometheus.Histogram
}

// NewMetrics creates new filter metrics registered with the default
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

	m.decisionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "decision_total",
			Help:      "Total number of terminal request outcomes",
		},
		[]string{"outcome"},
	)

	m.authorizationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "authorization_duration_seconds",
			Help:      "Time between authorization dispatch and reply in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	m.headerMappingBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "header_mapping_bytes",
			Help:      "Per-request authorization header mapping size in bytes",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		},
	)

	m.payloadBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "payload_bytes",
			Help:      "Serialized authorization payload size in bytes",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		},
	)

	collectors := []prometheus.Collector{
		m.decisionTotal,
		m.authorizationDuration,
		m.headerMappingBytes,
		m.payloadBytes,
	}
	for _, c := range collectors {
		_ = registerer.Register(c)
	}

	return m
}

// Terminal outcome labels.
const (
	OutcomeAllowed          = "allowed"
	OutcomeDenied           = "denied"
	OutcomeError            = "error"
	OutcomeFailOpenEncode   = "fail_open_encode"
	OutcomeFailOpenDispatch = "fail_open_dispatch"
)

// Init pre-initializes common label combinations with zero values so the
// metrics appear in scrape output immediately after startup.
func (m *Metrics) Init() {
	if m == nil {
		return
	}
	outcomes := []string{
		OutcomeAllowed,
		OutcomeDenied,
		OutcomeError,
		OutcomeFailOpenEncode,
		OutcomeFailOpenDispatch,
	}
	for _, outcome := range outcomes {
		m.decisionTotal.WithLabelValues(outcome)
	}
}

// RecordDecision records a terminal request outcome.
func (m *Metrics) RecordDecision(outcome string) {
	if m == nil || m.decisionTotal == nil {
		return
	}
	m.decisionTotal.WithLabelValues(outcome).Inc()
}

// RecordAuthorizationDuration records the dispatch-to-reply latency.
func (m *Metrics) RecordAuthorizationDuration(duration time.Duration) {
	if m == nil || m.authorizationDuration == nil {
		return
	}
	m.authorizationDuration.Observe(duration.Seconds())
}

// ObserveHeaderMappingBytes records a header mapping size.
func (m *Metrics) ObserveHeaderMappingBytes(bytes int) {
	if m == nil || m.headerMappingBytes == nil {
		return
	}
	m.headerMappingBytes.Observe(float64(bytes))
}

// ObservePayloadBytes records a serialized payload size.
func (m *Metrics) ObservePayloadBytes(bytes int) {
	if m == nil || m.payloadBytes == nil {
		return
	}
	m.payloadBytes.Observe(float64(bytes))
}
