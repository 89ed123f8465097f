package proxy

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/aegis/pkg/proxy/types"
	"mercator-hq/aegis/pkg/routing"
	"mercator-hq/aegis/pkg/security/auth"
	"mercator-hq/aegis/pkg/telemetry/logging"
	"mercator-hq/aegis/pkg/telemetry/tracing"
)

// Headers set on forwarded requests.
const (
	HeaderRequestID = "X-Request-ID"
	HeaderUserID    = "X-User-ID"
	HeaderTenantID  = "X-Tenant-ID"
)

// TransportConfig contains connection pool settings for downstream calls.
type TransportConfig struct {
	DialTimeout         time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// DefaultTransportConfig returns pool settings suited to a handful of
// downstream services.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		DialTimeout:         5 * time.Second,
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 50,
		IdleConnTimeout:     90 * time.Second,
	}
}

// NewTransport creates the HTTP transport used by the Forwarder.
func NewTransport(cfg TransportConfig) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

// Forwarder relays admitted requests to downstream services.
//
// One httputil.ReverseProxy serves every route; the route, identity and
// completion callback of each call travel in the request context.
type Forwarder struct {
	proxy      *httputil.ReverseProxy
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// ForwarderOption configures a Forwarder.
type ForwarderOption func(*Forwarder)

// WithTransport sets the round tripper used for downstream calls.
func WithTransport(rt http.RoundTripper) ForwarderOption {
	return func(f *Forwarder) {
		if rt != nil {
			f.proxy.Transport = rt
		}
	}
}

// WithTracerProvider sets the provider of the client span tracer.
func WithTracerProvider(tp trace.TracerProvider) ForwarderOption {
	return func(f *Forwarder) {
		if tp != nil {
			f.tracer = tp.Tracer(tracing.ScopeForwarder)
		}
	}
}

// WithPropagator sets the propagator used to inject trace context into
// downstream requests.
func WithPropagator(p propagation.TextMapPropagator) ForwarderOption {
	return func(f *Forwarder) {
		if p != nil {
			f.propagator = p
		}
	}
}

// NewForwarder creates a forwarder. Without options it uses a pooled
// transport and the global OpenTelemetry provider and propagator.
func NewForwarder(opts ...ForwarderOption) *Forwarder {
	f := &Forwarder{
		tracer:     otel.Tracer(tracing.ScopeForwarder),
		propagator: otel.GetTextMapPropagator(),
	}
	f.proxy = &httputil.ReverseProxy{
		Rewrite:        f.rewrite,
		ModifyResponse: f.modifyResponse,
		ErrorHandler:   f.handleError,
		Transport:      NewTransport(DefaultTransportConfig()),
		// Flush streamed responses as they arrive.
		FlushInterval: -1,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// forwardCall is the per-request state shared by the ReverseProxy hooks.
type forwardCall struct {
	rule      *routing.Rule
	identity  *auth.Identity
	clientCtx context.Context
	start     time.Time
	span      trace.Span
	once      sync.Once
	done      func(Outcome)
}

func (c *forwardCall) finish(o Outcome) {
	c.once.Do(func() {
		o.Duration = time.Since(c.start)
		switch {
		case o.Abandoned:
			c.span.SetStatus(codes.Unset, "client abandoned request")
		case o.Err != nil:
			c.span.RecordError(o.Err)
			c.span.SetStatus(codes.Error, "downstream unavailable")
		case o.Status >= 500:
			c.span.SetStatus(codes.Error, http.StatusText(o.Status))
		}
		if o.Status != 0 {
			c.span.SetAttributes(attribute.Int(tracing.AttrHTTPStatusCode, o.Status))
		}
		c.span.End()

		if c.done != nil {
			c.done(o)
		}
	})
}

type forwardCallKey struct{}

func callFromContext(ctx context.Context) *forwardCall {
	c, _ := ctx.Value(forwardCallKey{}).(*forwardCall)
	return c
}

// Forward relays r to the target of rule and writes the downstream response
// to w. identity may be nil for anonymous requests.
//
// done is invoked exactly once, before Forward returns, with one of:
//   - the downstream status code;
//   - a transport error, after a 503 envelope was written to the client;
//   - Abandoned, when the client went away before the downstream answered.
func (f *Forwarder) Forward(w http.ResponseWriter, r *http.Request, rule *routing.Rule, identity *auth.Identity, done func(Outcome)) {
	clientCtx := r.Context()

	ctx, span := f.tracer.Start(clientCtx, "proxy "+rule.Service,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(tracing.AttrService, rule.Service),
			attribute.String(tracing.AttrHTTPMethod, r.Method),
			attribute.String(tracing.AttrServerAddress, rule.Target.Host),
		),
	)

	call := &forwardCall{
		rule:      rule,
		identity:  identity,
		clientCtx: clientCtx,
		start:     time.Now(),
		span:      span,
		done:      done,
	}
	// A panic while copying the body, or any path that skips the hooks,
	// still settles the call.
	defer call.finish(Outcome{Abandoned: true})

	if rule.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rule.Timeout)
		defer cancel()
	}
	ctx = context.WithValue(ctx, forwardCallKey{}, call)

	f.proxy.ServeHTTP(w, r.WithContext(ctx))
}

// rewrite builds the outbound request: prefix stripped, target joined,
// identity and tracing headers replaced.
func (f *Forwarder) rewrite(pr *httputil.ProxyRequest) {
	call := callFromContext(pr.In.Context())
	if call == nil {
		return
	}
	target := call.rule.Target

	pr.Out.URL.Scheme = target.Scheme
	pr.Out.URL.Host = target.Host
	pr.Out.URL.Path = joinPath(target.Path, call.rule.StripPrefix(pr.In.URL.Path))
	pr.Out.URL.RawPath = ""
	if target.RawQuery != "" {
		if pr.Out.URL.RawQuery == "" {
			pr.Out.URL.RawQuery = target.RawQuery
		} else {
			pr.Out.URL.RawQuery = target.RawQuery + "&" + pr.Out.URL.RawQuery
		}
	}
	pr.Out.Host = ""

	pr.SetXForwarded()

	h := pr.Out.Header
	// Identity headers are only ever set by the gateway.
	h.Del(HeaderUserID)
	h.Del(HeaderTenantID)
	if call.identity != nil {
		h.Set(HeaderUserID, call.identity.Subject)
		h.Set(HeaderTenantID, call.identity.TenantID)
	}

	if id := logging.GetRequestID(pr.In.Context()); id != "" {
		h.Set(HeaderRequestID, id)
	}

	for _, k := range f.propagator.Fields() {
		h.Del(k)
	}
	f.propagator.Inject(pr.Out.Context(), propagation.HeaderCarrier(h))
}

// modifyResponse reports the downstream status. The gateway's own
// X-Request-ID is already on the response and is not duplicated.
func (f *Forwarder) modifyResponse(resp *http.Response) error {
	resp.Header.Del(HeaderRequestID)

	if call := callFromContext(resp.Request.Context()); call != nil {
		call.finish(Outcome{Status: resp.StatusCode})
	}
	return nil
}

// handleError reports a transport failure. Nothing is written when the
// client is already gone.
func (f *Forwarder) handleError(w http.ResponseWriter, r *http.Request, err error) {
	call := callFromContext(r.Context())
	if call == nil {
		types.WriteError(w, types.NewInternalError())
		return
	}

	if call.clientCtx.Err() != nil {
		slog.DebugContext(r.Context(), "client went away before downstream answered",
			"service", call.rule.Service,
			"error", err,
		)
		call.finish(Outcome{Abandoned: true})
		return
	}

	slog.WarnContext(r.Context(), "downstream request failed",
		"service", call.rule.Service,
		"target", call.rule.Target.Host,
		"error", err,
	)
	call.finish(Outcome{Err: &DownstreamError{Service: call.rule.Service, Err: err}})
	types.WriteError(w, types.NewDownstreamUnavailableError(call.rule.Service))
}

// joinPath joins a base path and a request path with exactly one slash
// between them.
func joinPath(base, rest string) string {
	switch {
	case base == "" || base == "/":
		return rest
	case rest == "/":
		return strings.TrimSuffix(base, "/")
	default:
		return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(rest, "/")
	}
}
