package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "0.0.0.0:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultCORSMaxAge      = 3600

	// TLS defaults
	DefaultTLSMinVersion     = "1.2"
	DefaultTLSReloadInterval = 5 * time.Minute
	DefaultTLSExpiryWarning  = 30 * 24 * time.Hour

	// Auth defaults
	DefaultSecretEnv       = "JWT_SECRET"
	DefaultMinSecretLength = 32
	DefaultAlgorithm       = "HS256"

	// Rate limit defaults
	DefaultRateLimitEnabled = true
	DefaultRateLimitWindow  = 15 * time.Minute
	DefaultRateLimitMax     = int64(100)
	DefaultRateLimitStore   = "redis"
	DefaultRedisAddress     = "127.0.0.1:6379"
	DefaultRedisPrefix      = "aegis:ratelimit"
	DefaultRedisDialTimeout = 2 * time.Second

	// Breaker defaults
	DefaultBreakerTimeout        = 30 * time.Second
	DefaultBreakerErrorThreshold = 50
	DefaultBreakerResetTimeout   = 30 * time.Second
	DefaultBreakerSampleSize     = 10

	// Routing defaults
	DefaultProxyPrefix = "/api/v1"
	DefaultRouteAuth   = "mandatory"

	// Journal defaults
	DefaultJournalEnabled       = true
	DefaultJournalDriver        = "sqlite"
	DefaultJournalPath          = "data/journal.db"
	DefaultJournalBuffer        = 1024
	DefaultJournalRetentionDays = 30
	DefaultJournalPruneSchedule = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "aegis"
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingServiceName = "aegis-gateway"
)

// DefaultConfig returns a configuration with every default applied and an
// empty routing table.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.RateLimit.Enabled = DefaultRateLimitEnabled
	cfg.Journal.Enabled = DefaultJournalEnabled
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
//
// Boolean fields whose default is true are not touched here because a zero
// value cannot be told apart from an explicit false; LoadConfig seeds them
// before unmarshalling instead.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.TLS.MinVersion == "" {
		cfg.Server.TLS.MinVersion = DefaultTLSMinVersion
	}
	if cfg.Server.TLS.ReloadInterval == 0 {
		cfg.Server.TLS.ReloadInterval = DefaultTLSReloadInterval
	}
	if cfg.Server.TLS.ExpiryWarning == 0 {
		cfg.Server.TLS.ExpiryWarning = DefaultTLSExpiryWarning
	}
	if len(cfg.Server.CORS.AllowedMethods) == 0 {
		cfg.Server.CORS.AllowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(cfg.Server.CORS.AllowedHeaders) == 0 {
		cfg.Server.CORS.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Request-ID"}
	}
	if len(cfg.Server.CORS.ExposedHeaders) == 0 {
		cfg.Server.CORS.ExposedHeaders = []string{"X-Request-ID", "RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset", "Retry-After"}
	}
	if cfg.Server.CORS.MaxAge == 0 {
		cfg.Server.CORS.MaxAge = DefaultCORSMaxAge
	}

	// Auth defaults
	if cfg.Auth.SecretEnv == "" {
		cfg.Auth.SecretEnv = DefaultSecretEnv
	}
	if cfg.Auth.MinSecretLength == 0 {
		cfg.Auth.MinSecretLength = DefaultMinSecretLength
	}
	if len(cfg.Auth.Algorithms) == 0 {
		cfg.Auth.Algorithms = []string{DefaultAlgorithm}
	}

	// Rate limit defaults
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = DefaultRateLimitWindow
	}
	if cfg.RateLimit.MaxRequests == 0 {
		cfg.RateLimit.MaxRequests = DefaultRateLimitMax
	}
	if cfg.RateLimit.Store == "" {
		cfg.RateLimit.Store = DefaultRateLimitStore
	}
	if cfg.RateLimit.Redis.Address == "" {
		cfg.RateLimit.Redis.Address = DefaultRedisAddress
	}
	if cfg.RateLimit.Redis.Prefix == "" {
		cfg.RateLimit.Redis.Prefix = DefaultRedisPrefix
	}
	if cfg.RateLimit.Redis.DialTimeout == 0 {
		cfg.RateLimit.Redis.DialTimeout = DefaultRedisDialTimeout
	}

	// Breaker defaults
	if cfg.Breaker.Timeout == 0 {
		cfg.Breaker.Timeout = DefaultBreakerTimeout
	}
	if cfg.Breaker.ErrorThresholdPercent == 0 {
		cfg.Breaker.ErrorThresholdPercent = DefaultBreakerErrorThreshold
	}
	if cfg.Breaker.ResetTimeout == 0 {
		cfg.Breaker.ResetTimeout = DefaultBreakerResetTimeout
	}
	if cfg.Breaker.SampleSize == 0 {
		cfg.Breaker.SampleSize = DefaultBreakerSampleSize
	}

	// Routing defaults - applied to each route
	if cfg.Routing.ProxyPrefix == "" {
		cfg.Routing.ProxyPrefix = DefaultProxyPrefix
	}
	for i := range cfg.Routing.Routes {
		if cfg.Routing.Routes[i].Auth == "" {
			cfg.Routing.Routes[i].Auth = DefaultRouteAuth
		}
	}

	// Journal defaults
	if cfg.Journal.Driver == "" {
		cfg.Journal.Driver = DefaultJournalDriver
	}
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = DefaultJournalPath
	}
	if cfg.Journal.Buffer == 0 {
		cfg.Journal.Buffer = DefaultJournalBuffer
	}
	if cfg.Journal.RetentionDays == 0 {
		cfg.Journal.RetentionDays = DefaultJournalRetentionDays
	}
	if cfg.Journal.PruneSchedule == "" {
		cfg.Journal.PruneSchedule = DefaultJournalPruneSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
}
