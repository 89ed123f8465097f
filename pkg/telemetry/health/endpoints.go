package health

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"golang.org/x/time/rate"

	"mercator-hq/aegis/pkg/proxy/types"
)

// ServiceName is reported by the health endpoints.
const ServiceName = "aegis-gateway"

// VersionInfo contains build and version information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// NewVersionInfo fills in the Go version of the running binary.
func NewVersionInfo(version, commit, buildTime string) VersionInfo {
	return VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}
}

// Summary is the /health response.
type Summary struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// Detailed is the /health/detailed response.
type Detailed struct {
	Status        string                 `json:"status"`
	Service       string                 `json:"service"`
	Build         VersionInfo            `json:"build"`
	UptimeSeconds int64                  `json:"uptime_seconds"`
	Checks        map[string]CheckResult `json:"checks"`
	Components    map[string]any         `json:"components"`
	Timestamp     time.Time              `json:"timestamp"`
}

// Handlers serves the health endpoints:
//
//   - /health: process is up
//   - /health/detailed: checks plus component state (circuits, routes)
//   - /health/ready: 503 until every readiness check passes
//   - /health/live: liveness probe
type Handlers struct {
	checker *Checker
	build   VersionInfo
}

// NewHandlers creates the health endpoint handlers.
func NewHandlers(checker *Checker, build VersionInfo) *Handlers {
	return &Handlers{checker: checker, build: build}
}

// Register mounts every endpoint on mux, throttled to requestsPerSecond
// per endpoint. A rate of 0 disables throttling.
//
// Usage:
//
//	mux := http.NewServeMux()
//	health.NewHandlers(checker, build).Register(mux, 20)
func (h *Handlers) Register(mux *http.ServeMux, requestsPerSecond int) {
	mux.Handle("/health", RateLimitedHandler(h.Health(), requestsPerSecond))
	mux.Handle("/health/detailed", RateLimitedHandler(h.Detailed(), requestsPerSecond))
	mux.Handle("/health/ready", RateLimitedHandler(h.Ready(), requestsPerSecond))
	mux.Handle("/health/live", RateLimitedHandler(h.Live(), requestsPerSecond))
}

// Health returns the /health handler.
//
// Example response:
//
//	{"status":"ok","service":"aegis-gateway","version":"1.0.0","timestamp":"2025-11-20T10:30:00Z"}
func (h *Handlers) Health() http.HandlerFunc {
	return getOnly(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, Summary{
			Status:    StatusOK,
			Service:   ServiceName,
			Version:   h.build.Version,
			Timestamp: time.Now().UTC(),
		})
	})
}

// Live returns the liveness probe handler. It never inspects dependencies.
func (h *Handlers) Live() http.HandlerFunc {
	return getOnly(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]any{
			"status":    StatusOK,
			"timestamp": time.Now().UTC(),
		})
	})
}

// Ready returns the readiness probe handler.
//
// Returns:
//   - 200 OK: every check passed
//   - 503 Service Unavailable: at least one check failed
func (h *Handlers) Ready() http.HandlerFunc {
	return getOnly(func(w http.ResponseWriter, r *http.Request) {
		report := h.checker.CheckReadiness(r.Context())

		status := http.StatusOK
		if !report.Ready() {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, r, status, report)
	})
}

// Detailed returns the /health/detailed handler. It always answers 200;
// the status field is "degraded" when a check failed or a component
// reports trouble, such as an open circuit.
func (h *Handlers) Detailed() http.HandlerFunc {
	return getOnly(func(w http.ResponseWriter, r *http.Request) {
		report := h.checker.CheckReadiness(r.Context())
		components, degraded := h.checker.Details()

		status := StatusOK
		if !report.Ready() || degraded {
			status = StatusDegraded
		}

		writeJSON(w, r, http.StatusOK, Detailed{
			Status:        status,
			Service:       ServiceName,
			Build:         h.build,
			UptimeSeconds: int64(h.checker.Uptime().Seconds()),
			Checks:        report.Checks,
			Components:    components,
			Timestamp:     report.Timestamp,
		})
	})
}

// RateLimitedHandler wraps a handler with a token bucket limiter so the
// health endpoints cannot be used to load the gateway.
//
// Usage:
//
//	handler := RateLimitedHandler(handlers.Live(), 10) // 10 req/s
//	mux.Handle("/health/live", handler)
func RateLimitedHandler(handler http.Handler, requestsPerSecond int) http.Handler {
	if requestsPerSecond <= 0 {
		return handler
	}

	limiter := rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			types.WriteError(w, types.NewRateLimitError())
			return
		}
		handler.ServeHTTP(w, r)
	})
}

func getOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(v)
	}
}
