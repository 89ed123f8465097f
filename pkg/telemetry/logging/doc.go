// Package logging provides structured logging for the gateway.
//
// # Overview
//
// The package wraps log/slog and adds:
//   - JSON or text output with a runtime adjustable level
//   - Request scoped fields taken from the context (request_id, user_id,
//     tenant_id, service) plus trace_id and span_id of the active span
//   - Redaction of Authorization values, JWTs and secrets
//
// # Usage
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger.Logger)
//
//	ctx = logging.WithRequestID(ctx, "req_1700000000000_ab12cd34")
//	slog.InfoContext(ctx, "forwarding request", "service", "identity")
//	// {"level":"INFO","msg":"forwarding request","request_id":"req_...","service":"identity"}
//
// # Redaction
//
//   - "Bearer eyJhbGciOi..." becomes "Bearer ***"
//   - bare JWTs become "***"
//   - values of keys containing token, secret, password or authorization
//     keep only a short prefix
package logging
