package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"mercator-hq/aegis/pkg/proxy/types"
)

// RecoveryMiddleware recovers from panics in HTTP handlers and returns a 500
// Internal Server Error envelope. The panic is logged with its stack trace;
// clients never see internal details.
//
// http.ErrAbortHandler is re-panicked so net/http can abort the connection
// as intended.
//
// Example usage:
//
//	handler = RecoveryMiddleware(handler)
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}

			// Let net/http abort the connection
			if err == http.ErrAbortHandler {
				panic(err)
			}

			// Log panic with stack trace
			slog.ErrorContext(r.Context(), "panic in handler",
				"error", err,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)

			// Return generic 500 envelope
			types.WriteError(w, types.NewInternalError())
		}()

		next.ServeHTTP(w, r)
	})
}
