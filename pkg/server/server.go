package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"mercator-hq/aegis/pkg/breaker"
	"mercator-hq/aegis/pkg/config"
	"mercator-hq/aegis/pkg/journal"
	"mercator-hq/aegis/pkg/journal/recorder"
	"mercator-hq/aegis/pkg/journal/retention"
	"mercator-hq/aegis/pkg/journal/storage"
	"mercator-hq/aegis/pkg/limits/ratelimit"
	"mercator-hq/aegis/pkg/proxy"
	"mercator-hq/aegis/pkg/proxy/middleware"
	"mercator-hq/aegis/pkg/routing"
	"mercator-hq/aegis/pkg/security/auth"
	"mercator-hq/aegis/pkg/security/secrets"
	aegistls "mercator-hq/aegis/pkg/security/tls"
	"mercator-hq/aegis/pkg/telemetry/health"
	"mercator-hq/aegis/pkg/telemetry/metrics"
	"mercator-hq/aegis/pkg/telemetry/tracing"
)

// healthRequestsPerSecond throttles each health endpoint.
const healthRequestsPerSecond = 50

// Server is the Aegis gateway process: the HTTP listener plus every
// component the dispatch pipeline depends on.
type Server struct {
	config  *config.Config
	version health.VersionInfo
	logger  *slog.Logger

	handler    http.Handler
	httpServer *http.Server
	addr       net.Addr

	tracing   *tracing.Provider
	secret    secrets.Source
	rdb       *redis.Client
	memStore  *ratelimit.MemoryStore
	table     *routing.Table
	breakers  *breaker.Registry
	collector *metrics.Collector
	checker   *health.Checker
	journal   journal.Storage
	recorder  *recorder.Recorder
	scheduler *retention.Scheduler
	certs     *aegistls.CertificateReloader
	tlsConfig *tls.Config

	// stopBackground cancels the janitor and the retention scheduler.
	stopBackground context.CancelFunc

	mu           sync.Mutex
	running      bool
	shutdownOnce sync.Once
	closeOnce    sync.Once
}

// Option configures a Server.
type Option func(*options)

type options struct {
	logger         *slog.Logger
	tracingOptions []tracing.Option
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTracingOptions passes options to the tracing provider, for example a
// test exporter.
func WithTracingOptions(opts ...tracing.Option) Option {
	return func(o *options) {
		o.tracingOptions = append(o.tracingOptions, opts...)
	}
}

// New builds every gateway component from cfg. A configured Redis store
// that does not answer is a startup error.
func New(ctx context.Context, cfg *config.Config, build health.VersionInfo, opts ...Option) (*Server, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	s := &Server{
		config:  cfg,
		version: build,
		logger:  o.logger,
	}

	if err := s.assemble(ctx, o); err != nil {
		s.close(context.Background())
		return nil, err
	}
	return s, nil
}

// assemble wires the components in dependency order.
func (s *Server) assemble(ctx context.Context, o *options) error {
	cfg := s.config

	// Tracing first so every later component can pick up the provider
	tp, err := tracing.New(ctx, &cfg.Telemetry.Tracing,
		append([]tracing.Option{tracing.WithVersion(s.version.Version)}, o.tracingOptions...)...)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	tp.Install()
	s.tracing = tp

	// Token verification
	s.secret, err = secrets.FromConfig(&cfg.Auth)
	if err != nil {
		return fmt.Errorf("auth secret: %w", err)
	}
	validator := auth.NewValidator(s.secret, cfg.Auth.Algorithms)

	// Routing table
	s.table, err = routing.NewTable(cfg.Routing, cfg.Breaker.Timeout)
	if err != nil {
		return fmt.Errorf("routing table: %w", err)
	}

	// Metrics and health
	s.collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	if cfg.Telemetry.Metrics.Enabled {
		s.collector.RegisterRuntimeCollectors()
	}

	s.checker = health.New(0)

	// TLS termination with certificate hot reload
	if tc := cfg.Server.TLS; tc.Enabled {
		s.certs, err = aegistls.NewCertificateReloader(tc.CertFile, tc.KeyFile, tc.ReloadInterval,
			aegistls.WithLogger(s.logger),
			aegistls.WithExpiryWarning(tc.ExpiryWarning),
		)
		if err != nil {
			return fmt.Errorf("tls: %w", err)
		}
		s.tlsConfig, err = aegistls.ServerConfig(tc, s.certs)
		if err != nil {
			return fmt.Errorf("tls: %w", err)
		}
		s.checker.RegisterCheck("tls", s.certs.Check)
		s.checker.RegisterDetail("tls", func() (any, bool) { return s.certs.Status() })
	}

	observers := []proxy.EventObserver{s.collector}
	breakerOpts := []breaker.Option{
		breaker.WithLogger(s.logger),
		breaker.WithObserver(s.collector),
	}

	// Audit journal
	if cfg.Journal.Enabled {
		s.journal, err = storage.New(&cfg.Journal)
		if err != nil {
			return fmt.Errorf("journal storage: %w", err)
		}
		s.recorder = recorder.NewRecorder(s.journal, &recorder.Config{
			Buffer:         cfg.Journal.Buffer,
			RecordFailures: true,
		})
		s.scheduler = retention.NewScheduler(retention.NewPruner(s.journal, &retention.Config{
			RetentionDays: cfg.Journal.RetentionDays,
			PruneSchedule: cfg.Journal.PruneSchedule,
			ArchivePath:   cfg.Journal.ArchivePath,
		}))

		observers = append(observers, s.recorder)
		breakerOpts = append(breakerOpts, breaker.WithObserver(s.recorder))
		s.checker.RegisterCheck("journal", health.PingCheck(s.journal))
		s.checker.RegisterDetail("journal", s.journalDetail)
	}

	// One circuit per routed service, observed by metrics and the journal
	s.breakers = breaker.NewRegistry(breaker.Settings{
		ErrorThresholdPercent: cfg.Breaker.ErrorThresholdPercent,
		ResetTimeout:          cfg.Breaker.ResetTimeout,
		SampleSize:            cfg.Breaker.SampleSize,
	}, s.table.Services(), breakerOpts...)
	s.collector.ObserveCircuits(s.breakers.Snapshot())

	s.checker.RegisterDetail("circuits", health.CircuitDetail(s.breakers))
	s.checker.RegisterDetail("routing", health.RoutingDetail(s.table))

	limiter, err := s.buildLimiter(ctx)
	if err != nil {
		return err
	}

	// Dispatch pipeline
	forwarder := proxy.NewForwarder(
		proxy.WithTransport(proxy.NewTransport(proxy.DefaultTransportConfig())),
		proxy.WithTracerProvider(tp.TracerProvider()),
		proxy.WithPropagator(tp.Propagator()),
	)

	pipeline, err := proxy.NewPipeline(proxy.PipelineConfig{
		Limiter:        limiter,
		KeyFunc:        ratelimit.DefaultKeyFunc(cfg.RateLimit.KeyHeader, cfg.RateLimit.TrustForwardedFor),
		Table:          s.table,
		Breakers:       s.breakers,
		Authenticator:  validator,
		Forwarder:      forwarder,
		Observers:      observers,
		TracerProvider: tp.TracerProvider(),
		Propagator:     tp.Propagator(),
	})
	if err != nil {
		return err
	}

	s.handler = s.routes(pipeline)
	return nil
}

// buildLimiter returns nil when rate limiting is disabled.
func (s *Server) buildLimiter(ctx context.Context) (*ratelimit.Limiter, error) {
	rl := s.config.RateLimit
	if !rl.Enabled {
		s.logger.Warn("rate limiting disabled")
		return nil, nil
	}

	var store ratelimit.Store
	switch rl.Store {
	case "memory":
		s.memStore = ratelimit.NewMemoryStore()
		store = s.memStore
	default:
		rdb, err := ratelimit.Connect(ctx, rl.Redis)
		if err != nil {
			return nil, fmt.Errorf("rate limit store: %w", err)
		}
		s.rdb = rdb
		redisStore := ratelimit.NewRedisStore(rdb, ratelimit.WithPrefix(rl.Redis.Prefix))
		s.checker.RegisterCheck("redis", health.PingCheck(redisStore))
		store = redisStore
	}

	s.logger.Info("rate limiter configured",
		"store", rl.Store,
		"window", rl.Window.String(),
		"max_requests", rl.MaxRequests,
	)

	return ratelimit.NewLimiter(s.collector.InstrumentStore(store), ratelimit.Config{
		Window:      rl.Window,
		MaxRequests: rl.MaxRequests,
	}, ratelimit.WithLogger(s.logger)), nil
}

// routes mounts health, metrics and the pipeline and applies the
// middleware chain.
func (s *Server) routes(pipeline http.Handler) http.Handler {
	mux := http.NewServeMux()

	health.NewHandlers(s.checker, s.version).Register(mux, healthRequestsPerSecond)

	if m := s.config.Telemetry.Metrics; m.Enabled {
		metricsHandler := s.collector.Handler()
		mux.Handle(m.Path, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.collector.ObserveCircuits(s.breakers.Snapshot())
			metricsHandler.ServeHTTP(w, r)
		}))
	}

	// Everything else is gateway traffic; unmatched paths get the 404
	// envelope from the pipeline.
	mux.Handle("/", pipeline)

	var handler http.Handler = mux
	handler = middleware.CORSMiddleware(s.config.Server.CORS)(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

// journalDetail degrades the detailed status once entries have been dropped.
func (s *Server) journalDetail() (any, bool) {
	dropped := s.recorder.Dropped()
	return map[string]any{
		"driver":  s.config.Journal.Driver,
		"written": s.recorder.Written(),
		"dropped": dropped,
		"pending": s.recorder.Pending(),
	}, dropped > 0
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Breakers returns the circuit breaker registry.
func (s *Server) Breakers() *breaker.Registry {
	return s.breakers
}

// Journal returns the journal storage, or nil when the journal is disabled.
func (s *Server) Journal() journal.Storage {
	return s.journal
}

// Addr returns the address the server is listening on, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Server.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or the listener
// fails, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		ln.Close()
		return errors.New("server is already running")
	}
	s.running = true
	s.addr = ln.Addr()

	// Terminate TLS on the accepted connections
	if s.tlsConfig != nil {
		ln = tls.NewListener(ln, s.tlsConfig)
	}

	sc := s.config.Server
	s.httpServer = &http.Server{
		Handler:        s.handler,
		ReadTimeout:    sc.ReadTimeout,
		WriteTimeout:   sc.WriteTimeout,
		IdleTimeout:    sc.IdleTimeout,
		MaxHeaderBytes: sc.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.mu.Unlock()

	// Janitor, certificate reloader and retention scheduler
	s.startBackground()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("gateway listening",
			"address", ln.Addr().String(),
			"routes", len(s.table.Rules()),
			"tls", s.tlsConfig != nil,
			"version", s.version.Version,
		)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Wait for cancellation or server error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown requested")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.close(context.Background())
		return err
	}
}

func (s *Server) startBackground() {
	bg, cancel := context.WithCancel(context.Background())
	s.stopBackground = cancel

	if s.memStore != nil {
		s.memStore.StartJanitor(bg, s.config.RateLimit.Window)
	}
	if s.certs != nil {
		go s.certs.Run(bg)
	}
	if s.scheduler != nil {
		if err := s.scheduler.Start(bg); err != nil {
			s.logger.Warn("journal retention not scheduled", "error", err)
		} else if next := s.scheduler.NextRun(); next != nil {
			s.logger.Debug("journal retention scheduled", "next_run", next.Format(time.RFC3339))
		}
	}
}

// Shutdown stops accepting connections, waits up to the configured
// shutdown timeout for in-flight requests, then releases every component.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		httpServer := s.httpServer
		s.mu.Unlock()

		if httpServer != nil {
			s.logger.Info("initiating graceful shutdown", "timeout", s.config.Server.ShutdownTimeout.String())

			// Drain in-flight requests
			shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.close(ctx)

		s.mu.Lock()
		s.running = false
		s.mu.Unlock()

		s.logger.Info("gateway stopped")
	})

	return shutdownErr
}

// close releases components in reverse dependency order. The recorder is
// drained before its storage is closed.
func (s *Server) close(ctx context.Context) {
	s.closeOnce.Do(func() {
		if s.stopBackground != nil {
			s.stopBackground()
		}
		if s.scheduler != nil {
			s.scheduler.Stop()
		}
		// Flush queued journal entries before closing the storage
		if s.recorder != nil {
			_ = s.recorder.Close()
		}
		if s.journal != nil {
			if err := s.journal.Close(); err != nil {
				s.logger.Warn("journal close failed", "error", err)
			}
		}
		if s.rdb != nil {
			if err := s.rdb.Close(); err != nil {
				s.logger.Warn("redis close failed", "error", err)
			}
		}
		if s.secret != nil {
			_ = s.secret.Close()
		}
		// Flush pending spans
		if s.tracing != nil {
			flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := s.tracing.Shutdown(flushCtx); err != nil {
				s.logger.Warn("tracing shutdown failed", "error", err)
			}
		}
	})
}
