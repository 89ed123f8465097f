package config

import "time"

// ConfigBuilder provides a fluent API for building Config instances in tests.
// It starts with default values and allows selective overrides.
type ConfigBuilder struct {
	cfg Config
}

// NewTestConfig creates a new ConfigBuilder with sensible defaults for testing.
// The resulting configuration is valid and can be used immediately.
func NewTestConfig() *ConfigBuilder {
	cfg := *DefaultConfig()
	cfg.RateLimit.Store = "memory"
	cfg.Journal.Driver = "memory"
	cfg.Auth.Secret = "test-secret-that-is-at-least-32-chars"

	// Add a default route for tests
	cfg.Routing.Routes = []RouteConfig{{
		Prefix:  "/api/v1/identity",
		Service: "identity",
		Target:  "http://identity-service:3001",
		Auth:    "mandatory",
	}}

	return &ConfigBuilder{cfg: cfg}
}

// Build returns the built Config instance.
func (b *ConfigBuilder) Build() *Config {
	return &b.cfg
}

// WithListenAddress sets the server listen address.
func (b *ConfigBuilder) WithListenAddress(addr string) *ConfigBuilder {
	b.cfg.Server.ListenAddress = addr
	return b
}

// WithWriteTimeout sets the server write timeout.
func (b *ConfigBuilder) WithWriteTimeout(d time.Duration) *ConfigBuilder {
	b.cfg.Server.WriteTimeout = d
	return b
}

// WithRoute appends a routing rule.
func (b *ConfigBuilder) WithRoute(route RouteConfig) *ConfigBuilder {
	b.cfg.Routing.Routes = append(b.cfg.Routing.Routes, route)
	return b
}

// WithoutRoutes clears the routing table.
func (b *ConfigBuilder) WithoutRoutes() *ConfigBuilder {
	b.cfg.Routing.Routes = nil
	return b
}

// WithRateLimit sets the window and ceiling.
func (b *ConfigBuilder) WithRateLimit(window time.Duration, max int64) *ConfigBuilder {
	b.cfg.RateLimit.Window = window
	b.cfg.RateLimit.MaxRequests = max
	return b
}

// WithRateLimitStore sets the counter store backend.
func (b *ConfigBuilder) WithRateLimitStore(store string) *ConfigBuilder {
	b.cfg.RateLimit.Store = store
	return b
}

// WithBreaker sets the breaker thresholds.
func (b *ConfigBuilder) WithBreaker(threshold int, reset time.Duration) *ConfigBuilder {
	b.cfg.Breaker.ErrorThresholdPercent = threshold
	b.cfg.Breaker.ResetTimeout = reset
	return b
}

// WithJournal sets the journal driver and path.
func (b *ConfigBuilder) WithJournal(driver, path string) *ConfigBuilder {
	b.cfg.Journal.Enabled = true
	b.cfg.Journal.Driver = driver
	b.cfg.Journal.Path = path
	return b
}

// WithLoggingLevel sets the logging level.
func (b *ConfigBuilder) WithLoggingLevel(level string) *ConfigBuilder {
	b.cfg.Telemetry.Logging.Level = level
	return b
}

// WithTracingEnabled enables or disables tracing with the given endpoint.
func (b *ConfigBuilder) WithTracingEnabled(enabled bool, endpoint string) *ConfigBuilder {
	b.cfg.Telemetry.Tracing.Enabled = enabled
	b.cfg.Telemetry.Tracing.Endpoint = endpoint
	return b
}
