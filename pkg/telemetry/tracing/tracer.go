package tracing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc/credentials/insecure"

	"mercator-hq/aegis/pkg/config"
)

// Provider owns the OpenTelemetry tracer provider and propagator used by
// the gateway.
//
// When tracing is disabled the provider is a noop and the propagator still
// forwards incoming W3C trace context, so downstream services keep their
// trace even though the gateway exports nothing.
type Provider struct {
	config     *config.TracingConfig
	tp         trace.TracerProvider
	sdk        *sdktrace.TracerProvider
	propagator propagation.TextMapPropagator
}

// Option configures a Provider.
type Option func(*providerOptions)

type providerOptions struct {
	exporter sdktrace.SpanExporter
	version  string
}

// WithExporter replaces the OTLP exporter. Used by tests with an in-memory
// exporter.
func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(o *providerOptions) {
		o.exporter = exp
	}
}

// WithVersion sets the service.version resource attribute.
func WithVersion(version string) Option {
	return func(o *providerOptions) {
		o.version = version
	}
}

// New creates a Provider from cfg.
//
// The provider must be shut down to flush pending spans:
//
//	defer provider.Shutdown(context.Background())
func New(ctx context.Context, cfg *config.TracingConfig, opts ...Option) (*Provider, error) {
	if cfg == nil {
		return nil, errors.New("tracing config is nil")
	}

	var o providerOptions
	for _, opt := range opts {
		opt(&o)
	}

	p := &Provider{
		config:     cfg,
		propagator: NewPropagator(),
	}

	if !cfg.Enabled {
		p.tp = noop.NewTracerProvider()
		return p, nil
	}

	exporter := o.exporter
	if exporter == nil {
		var err error
		exporter, err = newOTLPExporter(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create exporter: %w", err)
		}
	}

	attrs := []attribute.KeyValue{attribute.String("service.name", cfg.ServiceName)}
	if o.version != "" {
		attrs = append(attrs, attribute.String("service.version", o.version))
	}

	p.sdk = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attrs...)),
		sdktrace.WithSampler(NewSampler(cfg.SampleRatio)),
	)
	p.tp = p.sdk

	return p, nil
}

// Install sets the provider and propagator as the OpenTelemetry globals.
func (p *Provider) Install() {
	otel.SetTracerProvider(p.tp)
	otel.SetTextMapPropagator(p.propagator)
}

// TracerProvider returns the provider to create tracers from.
func (p *Provider) TracerProvider() trace.TracerProvider {
	return p.tp
}

// Propagator returns the W3C trace context and baggage propagator.
func (p *Provider) Propagator() propagation.TextMapPropagator {
	return p.propagator
}

// Enabled reports whether spans are exported.
func (p *Provider) Enabled() bool {
	return p.sdk != nil
}

// ForceFlush exports all ended spans that have not been exported yet.
func (p *Provider) ForceFlush(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return p.sdk.ForceFlush(ctx)
}

// Shutdown flushes pending spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return p.sdk.Shutdown(ctx)
}

// newOTLPExporter creates an OTLP gRPC exporter. The connection is
// established lazily, so an unreachable collector does not block startup.
func newOTLPExporter(ctx context.Context, cfg *config.TracingConfig) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithTimeout(10 * time.Second),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
	}

	exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}
	return exporter, nil
}

// TraceID returns the trace ID from the context as a string.
// Returns empty string if no trace context exists.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
