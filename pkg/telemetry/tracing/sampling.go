package tracing

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// NewSampler returns the sampler for a sample ratio.
//
// Root spans are sampled with probability ratio; spans with a remote parent
// follow the parent's decision, so a trace sampled by the caller stays
// sampled through the gateway.
//
//   - ratio >= 1: sample every root
//   - ratio <= 0: sample no roots
//   - otherwise: TraceIDRatioBased(ratio)
func NewSampler(ratio float64) sdktrace.Sampler {
	var root sdktrace.Sampler
	switch {
	case ratio >= 1:
		root = sdktrace.AlwaysSample()
	case ratio <= 0:
		root = sdktrace.NeverSample()
	default:
		root = sdktrace.TraceIDRatioBased(ratio)
	}
	return sdktrace.ParentBased(root)
}
