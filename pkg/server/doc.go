// Package server assembles and runs the Aegis gateway.
//
// New turns a validated *config.Config into a running set of components:
//
//   - tracing provider, installed as the OpenTelemetry global
//   - JWT secret source and token validator
//   - routing table and one circuit per configured service
//   - rate limiter backed by Redis (or memory), instrumented for metrics
//   - decision journal with its recorder and retention scheduler
//   - Prometheus collector, health checker and the dispatch pipeline
//
// A Redis store that does not answer PING within the dial timeout makes New
// fail. The gateway does not start without its shared counter.
//
// # Basic Usage
//
//	cfg, err := config.LoadConfigWithEnvOverrides("aegis.yaml")
//	if err != nil {
//	    return err
//	}
//
//	ctx, stop := cli.SetupSignalHandler(context.Background())
//	defer stop()
//
//	srv, err := server.New(ctx, cfg, health.NewVersionInfo(version, commit, buildTime))
//	if err != nil {
//	    return err
//	}
//	return srv.Run(ctx) // returns after graceful shutdown
//
// # Routes
//
//   - GET /health, /health/live, /health/ready, /health/detailed
//   - GET /metrics (telemetry.metrics.path)
//   - everything else: the dispatch pipeline
//
// # Middleware Chain
//
// From outermost to innermost: Recovery, Logging, RequestID, CORS.
//
// # Graceful Shutdown
//
// When the context passed to Run is cancelled the listener closes, in-flight
// requests get up to server.shutdown_timeout to finish, and then the journal
// recorder is drained before its storage, the Redis client and the tracer
// provider are closed.
package server
