package proxy

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/aegis/pkg/breaker"
	"mercator-hq/aegis/pkg/limits/ratelimit"
	"mercator-hq/aegis/pkg/proxy/types"
	"mercator-hq/aegis/pkg/routing"
	"mercator-hq/aegis/pkg/security/auth"
	"mercator-hq/aegis/pkg/telemetry/logging"
	"mercator-hq/aegis/pkg/telemetry/tracing"
)

// Authenticator verifies the Authorization header for a route mode.
// *auth.Validator implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, header string, mode auth.Mode) (*auth.Identity, error)
}

// Pipeline admits and dispatches requests under the proxy prefix.
//
// Stages run in a fixed order and the first rejection ends the request:
//
//  1. metadata: trace context extraction, request metadata
//  2. rate limit (429)
//  3. route lookup (404)
//  4. circuit admission (503)
//  5. authentication per route mode (401)
//  6. role check (403)
//  7. forward, then record the outcome on the circuit
//
// A circuit slot taken in stage 4 is released when a later stage rejects,
// so rejections never count as downstream failures.
type Pipeline struct {
	limiter       *ratelimit.Limiter
	keyFunc       ratelimit.KeyFunc
	table         *routing.Table
	breakers      *breaker.Registry
	authenticator Authenticator
	forwarder     *Forwarder
	observers     []EventObserver
	tracer        trace.Tracer
	propagator    propagation.TextMapPropagator
	now           func() time.Time
}

// PipelineConfig holds the collaborators of a Pipeline. Limiter may be nil
// to disable rate limiting; every other field except Observers is required.
type PipelineConfig struct {
	Limiter       *ratelimit.Limiter
	KeyFunc       ratelimit.KeyFunc
	Table         *routing.Table
	Breakers      *breaker.Registry
	Authenticator Authenticator
	Forwarder     *Forwarder
	Observers     []EventObserver

	// TracerProvider and Propagator default to the OpenTelemetry globals.
	TracerProvider trace.TracerProvider
	Propagator     propagation.TextMapPropagator

	// Now overrides the clock. Used by tests.
	Now func() time.Time
}

// NewPipeline creates a pipeline from cfg.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	switch {
	case cfg.Table == nil:
		return nil, errors.New("pipeline: routing table is required")
	case cfg.Breakers == nil:
		return nil, errors.New("pipeline: breaker registry is required")
	case cfg.Authenticator == nil:
		return nil, errors.New("pipeline: authenticator is required")
	case cfg.Forwarder == nil:
		return nil, errors.New("pipeline: forwarder is required")
	}

	p := &Pipeline{
		limiter:       cfg.Limiter,
		keyFunc:       cfg.KeyFunc,
		table:         cfg.Table,
		breakers:      cfg.Breakers,
		authenticator: cfg.Authenticator,
		forwarder:     cfg.Forwarder,
		observers:     cfg.Observers,
		propagator:    cfg.Propagator,
		now:           cfg.Now,
	}
	if p.keyFunc == nil {
		p.keyFunc = ratelimit.DefaultKeyFunc("", false)
	}
	if p.propagator == nil {
		p.propagator = otel.GetTextMapPropagator()
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	p.tracer = tp.Tracer(tracing.ScopePipeline)
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// ServeHTTP implements http.Handler.
func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	now := p.now()

	// Stage 1: metadata.
	ctx := p.propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := p.tracer.Start(ctx, "gateway "+r.Method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String(tracing.AttrHTTPMethod, r.Method),
			attribute.String(tracing.AttrURLPath, r.URL.Path),
		),
	)
	defer span.End()
	r = r.WithContext(ctx)

	meta := ExtractRequestMetadata(r, p.keyFunc(r), now)
	span.SetAttributes(attribute.String(tracing.AttrRequestID, meta.RequestID))

	// Stage 2: rate limit.
	if p.limiter != nil {
		decision, err := p.limiter.Allow(ctx, meta.ClientKey)
		if err != nil {
			span.AddEvent("rate limit store unavailable")
		}
		ratelimit.SetHeaders(w.Header(), decision, now)
		if !decision.Allowed {
			p.reject(w, r, meta, "", "", ErrRateLimitExceeded)
			return
		}
	}

	// Stage 3: route lookup. Paths outside the proxy prefix never reach the
	// table.
	if !p.table.Proxied(r.URL.Path) {
		p.reject(w, r, meta, "", "", &routing.RouteNotFoundError{Path: r.URL.Path})
		return
	}
	rule, err := p.table.Match(r.URL.Path)
	if err != nil {
		p.reject(w, r, meta, "", "", err)
		return
	}
	span.SetAttributes(attribute.String(tracing.AttrService, rule.Service))
	ctx = logging.WithService(ctx, rule.Service)
	r = r.WithContext(ctx)

	// Stage 4: circuit admission.
	ticket, err := p.breakers.Admit(rule.Service)
	if err != nil {
		p.reject(w, r, meta, rule.Service, "", err)
		return
	}

	// Stage 5: authentication.
	identity, err := p.authenticator.Authenticate(ctx, r.Header.Get("Authorization"), rule.Auth)
	if err != nil {
		p.breakers.Release(ticket)
		p.reject(w, r, meta, rule.Service, "", err)
		return
	}

	// Stage 6: role check.
	if rule.RequiresRole() && (identity == nil || !identity.HasAnyRole(rule.Roles)) {
		p.breakers.Release(ticket)
		subject := ""
		if identity != nil {
			subject = identity.Subject
		}
		p.reject(w, r, meta, rule.Service, subject, ErrInsufficientRole)
		return
	}

	if identity != nil {
		ctx = auth.WithIdentity(ctx, identity)
		ctx = logging.WithUser(ctx, identity.Subject, identity.TenantID)
		span.SetAttributes(
			attribute.String(tracing.AttrEndUserID, identity.Subject),
			attribute.String(tracing.AttrTenantID, identity.TenantID),
		)
		r = r.WithContext(ctx)
	}

	// Stage 7: forward and record.
	p.forwarder.Forward(w, r, rule, identity, func(o Outcome) {
		switch {
		case o.Abandoned:
			p.breakers.Release(ticket)
		default:
			p.breakers.RecordOutcome(ticket, !o.Failed())
		}

		if o.Failed() {
			span.SetStatus(codes.Error, o.Label())
		}
		for _, obs := range p.observers {
			obs.RequestCompleted(Completion{RequestMetadata: meta, Service: rule.Service, Outcome: o})
		}
	})
}

// reject writes the envelope for err and notifies observers.
func (p *Pipeline) reject(w http.ResponseWriter, r *http.Request, meta RequestMetadata, service, subject string, err error) {
	resp := HandleError(err)

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String(tracing.AttrRejection, string(resp.Code)),
		attribute.Int(tracing.AttrHTTPStatusCode, resp.HTTPStatusCode()),
	)

	slog.InfoContext(r.Context(), "request rejected",
		"code", string(resp.Code),
		"status", resp.HTTPStatusCode(),
		"path", meta.Path,
		"client", meta.ClientKey,
		"reason", err.Error(),
	)

	for _, obs := range p.observers {
		obs.RequestRejected(Rejection{
			RequestMetadata: meta,
			Code:            resp.Code,
			Status:          resp.HTTPStatusCode(),
			Service:         service,
			Subject:         subject,
			Reason:          err.Error(),
		})
	}

	types.WriteError(w, resp)
}
