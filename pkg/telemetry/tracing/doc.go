// Package tracing configures OpenTelemetry tracing for the Aegis gateway.
//
// The gateway creates two spans per proxied request: a server span for the
// pipeline and a client span for the downstream call. Incoming W3C
// traceparent headers are honored and the client span is injected into the
// downstream request, so one trace covers caller, gateway and service.
//
// # Configuration
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    endpoint: "otel-collector:4317"
//	    insecure: true
//	    sample_ratio: 0.1
//	    service_name: "aegis-gateway"
//
// Spans are exported over OTLP gRPC in batches. Sampling is parent based:
// root spans are sampled at sample_ratio and child spans follow the
// caller's decision.
//
// # Usage
//
//	provider, err := tracing.New(ctx, &cfg.Telemetry.Tracing, tracing.WithVersion(version))
//	if err != nil {
//	    return err
//	}
//	defer provider.Shutdown(context.Background())
//	provider.Install()
//
// With tracing disabled the provider is a noop but trace context is still
// propagated to downstream services.
package tracing
