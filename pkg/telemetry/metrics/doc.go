// Package metrics exposes Prometheus metrics for the Aegis gateway.
//
// A Collector observes the request pipeline and the circuit breaker
// registry and serves the results at /metrics. Every metric is registered
// on the collector's own registry, never the global default.
//
// # Metrics
//
//   - aegis_requests_total{service,outcome}
//   - aegis_downstream_responses_total{service,class}
//   - aegis_downstream_duration_seconds{service}
//   - aegis_rejections_total{service,code}
//   - aegis_circuit_state{service}
//   - aegis_circuit_transitions_total{service,from,to}
//   - aegis_ratelimit_store_errors_total{operation}
//   - aegis_ratelimit_store_duration_seconds
//
// Outcomes are success, failure, transport_error and abandoned. Rejection
// codes are the stable codes of package types.
//
// # Disabled Collection
//
// When MetricsConfig.Enabled is false every Record method is a no-op and
// InstrumentStore returns the store unchanged.
package metrics
