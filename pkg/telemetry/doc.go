// Package telemetry groups the observability packages of the Aegis gateway.
//
//   - logging: log/slog setup, request scoped fields and credential redaction
//   - metrics: Prometheus collector fed by pipeline and circuit events
//   - tracing: OpenTelemetry provider, sampler and W3C propagation
//   - health: /health, /health/detailed, /health/ready and /health/live
//
// The packages are independent; package server wires them together at
// startup from config.TelemetryConfig.
package telemetry
