package tracing

import (
	"go.opentelemetry.io/otel/propagation"
)

// NewPropagator returns the composite W3C propagator used on both sides of
// the gateway: traceparent/tracestate are extracted from client requests
// and injected into downstream requests, together with baggage.
//
// traceparent format: version-trace_id-parent_id-trace_flags
//
//	00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
func NewPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}
