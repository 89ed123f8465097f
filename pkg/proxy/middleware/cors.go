package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"mercator-hq/aegis/pkg/config"
)

// CORSMiddleware adds Cross-Origin Resource Sharing (CORS) headers to responses.
// It handles preflight OPTIONS requests and adds appropriate CORS headers for
// all requests.
//
// Preflight requests are answered here with 204 and never reach the
// pipeline, so they are not rate limited or counted against a circuit.
//
// Example usage:
//
//	handler = CORSMiddleware(cfg.Server.CORS)(handler)
func CORSMiddleware(cfg config.CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled {
			return next
		}

		// Header values are fixed for the lifetime of the handler
		methods := strings.Join(cfg.AllowedMethods, ", ")
		allowHeaders := strings.Join(cfg.AllowedHeaders, ", ")
		exposeHeaders := strings.Join(cfg.ExposedHeaders, ", ")
		wildcard := slices.Contains(cfg.AllowedOrigins, "*")

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			origin := r.Header.Get("Origin")

			// Pick the Access-Control-Allow-Origin value
			switch {
			case origin == "":
				// Same-origin or non-browser request
			case wildcard && !cfg.AllowCredentials:
				h.Set("Access-Control-Allow-Origin", "*")
			case isOriginAllowed(origin, cfg.AllowedOrigins):
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			default:
				// Unknown origins get no CORS headers; the browser blocks
				// the response.
				next.ServeHTTP(w, r)
				return
			}

			// Set Access-Control-Expose-Headers
			if exposeHeaders != "" && origin != "" {
				h.Set("Access-Control-Expose-Headers", exposeHeaders)
			}

			// Handle preflight OPTIONS request
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if methods != "" {
					h.Set("Access-Control-Allow-Methods", methods)
				}
				if allowHeaders != "" {
					h.Set("Access-Control-Allow-Headers", allowHeaders)
				}
				if cfg.MaxAge > 0 {
					h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				}
				// Respond with 204 No Content for preflight
				w.WriteHeader(http.StatusNoContent)
				return
			}

			// Call next handler
			next.ServeHTTP(w, r)
		})
	}
}

// isOriginAllowed checks if an origin is in the allowed list.
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	for _, allowed := range allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
