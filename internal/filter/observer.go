package filter

import (
	"github.com/uipbdi/authgw/internal/observability"
)

// Observer receives memory-accounting checkpoints over one request's
// lifetime. It is operational tooling, kept out of the control-flow logic:
// the filter reports transient buffer sizes at fixed points and the
// observer decides what to do with them.
type Observer interface {
	// RequestStart is called when request-header processing begins.
	RequestStart()

	// HeaderMappingBuilt is called after the header mapping is built with
	// its estimated size in bytes.
	HeaderMappingBuilt(bytes int)

	// PayloadSerialized is called after the authorization request is
	// serialized with the payload size in bytes.
	PayloadSerialized(bytes int)

	// RequestEnd is called when the request reaches a terminal state, with
	// the number of transient bytes still accounted to the request.
	RequestEnd(retained int)
}

// nopObserver discards all checkpoints.
type nopObserver struct{}

func (nopObserver) RequestStart()          {}
func (nopObserver) HeaderMappingBuilt(int) {}
func (nopObserver) PayloadSerialized(int)  {}
func (nopObserver) RequestEnd(int)         {}

// NopObserver returns an observer that discards all checkpoints.
func NopObserver() Observer {
	return nopObserver{}
}

// memoryObserver tracks transient buffer bytes across one request and logs
// a warning when a request ends while still accounting transient buffers.
type memoryObserver struct {
	logger  observability.Logger
	metrics *Metrics

	headerBytes  int
	payloadBytes int
}

// NewMemoryObserver creates an observer that tracks per-request transient
// buffer sizes. One observer serves one filter instance.
func NewMemoryObserver(logger observability.Logger, metrics *Metrics) Observer {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &memoryObserver{
		logger:  logger,
		metrics: metrics,
	}
}

// RequestStart resets the per-request accounting.
func (o *memoryObserver) RequestStart() {
	o.headerBytes = 0
	o.payloadBytes = 0
}

// HeaderMappingBuilt records the header mapping size.
func (o *memoryObserver) HeaderMappingBuilt(bytes int) {
	o.headerBytes = bytes
	o.metrics.ObserveHeaderMappingBytes(bytes)
}

// PayloadSerialized records the serialized payload size.
func (o *memoryObserver) PayloadSerialized(bytes int) {
	o.payloadBytes = bytes
	o.metrics.ObservePayloadBytes(bytes)
}

// RequestEnd logs a leak heuristic when transient bytes remain accounted at
// request end.
func (o *memoryObserver) RequestEnd(retained int) {
	if retained > 0 {
		o.logger.Warn("request ended with retained transient buffers",
			observability.Int("retained_bytes", retained),
			observability.Int("header_bytes", o.headerBytes),
			observability.Int("payload_bytes", o.payloadBytes),
		)
	}
}
