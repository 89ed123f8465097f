// Package proxy implements the request pipeline of the Aegis gateway.
//
// Every request under the proxy prefix passes through a fixed sequence of
// stages. The first stage to reject a request writes the error envelope and
// ends it; later stages never run.
//
//	metadata -> rate limit -> route -> circuit -> auth -> role -> forward
//
// # Components
//
//   - Pipeline: the http.Handler running the stages.
//   - Forwarder: a single httputil.ReverseProxy relaying admitted requests
//     to the target of the matched routing rule.
//   - HandleError: maps stage errors to the JSON error envelope.
//   - EventObserver: receives rejections and completions. Metrics and the
//     decision journal implement it.
//
// # Circuit Accounting
//
// A request admitted by the circuit breaker is settled exactly once:
//
//   - downstream status below 500: success
//   - downstream status 500 or above, or a transport error: failure
//   - rejected by auth or role after admission, or abandoned by the
//     client: released without an outcome
//
// # Forwarded Headers
//
// The matched prefix is stripped and the remainder joined to the target
// path. The gateway sets X-Request-ID, X-Forwarded-For/Host/Proto and, for
// authenticated callers, X-User-ID and X-Tenant-ID. Client supplied
// identity headers are always removed. W3C trace context is injected from
// the gateway's client span.
//
// # Basic Usage
//
//	p, err := proxy.NewPipeline(proxy.PipelineConfig{
//	    Limiter:       limiter,
//	    Table:         table,
//	    Breakers:      breakers,
//	    Authenticator: auth.NewValidator(secrets, []string{"HS256"}),
//	    Forwarder:     proxy.NewForwarder(),
//	    Observers:     []proxy.EventObserver{collector, recorder},
//	})
//	if err != nil {
//	    return err
//	}
//	mux.Handle("/api/v1/", p)
package proxy
