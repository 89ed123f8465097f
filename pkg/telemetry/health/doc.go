// Package health serves the Aegis gateway health endpoints.
//
// # Endpoints
//
//   - /health: the process is up; includes the build version
//   - /health/detailed: readiness checks, circuit snapshots and routing
//     statistics; status is "degraded" while any circuit is not CLOSED
//   - /health/ready: 200 when every readiness check passes, 503 otherwise
//   - /health/live: liveness probe, never touches dependencies
//
// Every endpoint is throttled by a token bucket (golang.org/x/time/rate).
//
// # Usage
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("ratelimit_store", health.PingCheck(store))
//	checker.RegisterDetail("circuits", health.CircuitDetail(breakers))
//	checker.RegisterDetail("routing", health.RoutingDetail(table))
//
//	health.NewHandlers(checker, health.NewVersionInfo(version, commit, date)).Register(mux, 20)
//
// Checks run concurrently. A check that exceeds the checker timeout is
// reported unhealthy with ErrCheckTimeout even if it ignores its context.
package health
