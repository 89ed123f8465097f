package config

import "time"

// Config is the root configuration structure for the Aegis gateway.
// It contains all configuration sections for the HTTP server, token
// validation, rate limiting, circuit breaking, routing, the decision journal
// and telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen address
	// and timeouts.
	Server ServerConfig `yaml:"server"`

	// Auth contains token validation settings.
	Auth AuthConfig `yaml:"auth"`

	// RateLimit contains per-client fixed window rate limiting settings.
	RateLimit RateLimitConfig `yaml:"ratelimit"`

	// Breaker contains the per-service circuit breaker settings.
	Breaker BreakerConfig `yaml:"breaker"`

	// Routing contains the static routing table.
	Routing RoutingConfig `yaml:"routing"`

	// Journal contains configuration for the decision journal.
	Journal JournalConfig `yaml:"journal"`

	// Telemetry contains configuration for logging, metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "0.0.0.0:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. It must exceed the downstream timeout.
	// Default: 60s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for in-flight
	// requests during graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// CORS contains Cross-Origin Resource Sharing settings for browser
	// clients.
	CORS CORSConfig `yaml:"cors"`

	// TLS terminates HTTPS on the listener.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig contains listener TLS settings. Certificates are reloaded from
// disk when the files change, so renewals need no restart.
type TLSConfig struct {
	// Enabled serves HTTPS instead of plain HTTP.
	Enabled bool `yaml:"enabled"`

	// CertFile is the PEM-encoded certificate chain.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the PEM-encoded private key.
	KeyFile string `yaml:"key_file"`

	// MinVersion is the minimum protocol version ("1.2" or "1.3").
	// Default: "1.2"
	MinVersion string `yaml:"min_version"`

	// CipherSuites restricts TLS 1.2 cipher suites. Empty uses Go's defaults.
	CipherSuites []string `yaml:"cipher_suites"`

	// ReloadInterval is how often the certificate files are checked for
	// changes.
	// Default: 5m
	ReloadInterval time.Duration `yaml:"reload_interval"`

	// ExpiryWarning is how long before expiry the certificate is reported
	// as degraded by the detailed health endpoint.
	// Default: 720h (30 days)
	ExpiryWarning time.Duration `yaml:"expiry_warning"`
}

// CORSConfig contains configuration for CORS headers.
type CORSConfig struct {
	// Enabled controls whether CORS headers are added.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins. Use ["*"] to allow all.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods.
	// Default: GET, POST, PUT, PATCH, DELETE, OPTIONS
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed request headers.
	// Default: Authorization, Content-Type, X-Request-ID
	AllowedHeaders []string `yaml:"allowed_headers"`

	// ExposedHeaders is a list of headers exposed to clients.
	// Default: X-Request-ID and the RateLimit headers
	ExposedHeaders []string `yaml:"exposed_headers"`

	// MaxAge is the preflight cache duration in seconds.
	// Default: 3600
	MaxAge int `yaml:"max_age"`

	// AllowCredentials controls whether credentials are allowed.
	AllowCredentials bool `yaml:"allow_credentials"`
}

// AuthConfig contains token validation configuration.
//
// Exactly one secret source is used, in this order: Secret, SecretFile,
// SecretEnv.
type AuthConfig struct {
	// Secret is the shared HMAC signing secret. Prefer SecretEnv or
	// SecretFile outside of development.
	Secret string `yaml:"secret"`

	// SecretEnv names an environment variable holding the secret.
	// Default: "JWT_SECRET"
	SecretEnv string `yaml:"secret_env"`

	// SecretFile is a path to a file holding the secret.
	SecretFile string `yaml:"secret_file"`

	// WatchSecret reloads SecretFile when it changes on disk.
	// Default: false
	WatchSecret bool `yaml:"watch_secret"`

	// MinSecretLength is the minimum accepted secret length.
	// Default: 32
	MinSecretLength int `yaml:"min_secret_length"`

	// Algorithms lists the accepted HMAC signing methods.
	// Default: ["HS256"]
	Algorithms []string `yaml:"algorithms"`
}

// RateLimitConfig contains fixed window rate limiting configuration.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is applied.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Window is the fixed window size.
	// Default: 15m
	Window time.Duration `yaml:"window"`

	// MaxRequests is the request ceiling per client key per window.
	// Default: 100
	MaxRequests int64 `yaml:"max_requests"`

	// KeyHeader, when set, names a request header whose value is used as
	// the client key before falling back to the client address.
	KeyHeader string `yaml:"key_header"`

	// TrustForwardedFor uses the first X-Forwarded-For hop as the client
	// address. Enable only behind a trusted load balancer.
	// Default: false
	TrustForwardedFor bool `yaml:"trust_forwarded_for"`

	// Store selects the counter store: "redis" or "memory".
	// Default: "redis"
	Store string `yaml:"store"`

	// Redis contains the shared counter store connection settings.
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	// Address is the Redis host:port.
	// Default: "127.0.0.1:6379"
	Address string `yaml:"address"`

	// Password is the optional Redis password.
	Password string `yaml:"password"`

	// DB is the Redis logical database.
	DB int `yaml:"db"`

	// Prefix namespaces all rate limit keys.
	// Default: "aegis:ratelimit"
	Prefix string `yaml:"prefix"`

	// DialTimeout bounds connection establishment and the startup ping.
	// Default: 2s
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// BreakerConfig contains circuit breaker configuration shared by all
// downstream services.
type BreakerConfig struct {
	// Timeout is the downstream request timeout. Exceeding it counts as a
	// transport failure.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// ErrorThresholdPercent trips the breaker when the failure ratio meets
	// or exceeds it.
	// Default: 50
	ErrorThresholdPercent int `yaml:"error_threshold_percent"`

	// ResetTimeout is how long an open breaker waits before admitting a
	// probe request.
	// Default: 30s
	ResetTimeout time.Duration `yaml:"reset_timeout"`

	// SampleSize is the fixed denominator of the failure ratio.
	// Default: 10
	SampleSize int `yaml:"sample_size"`
}

// RoutingConfig contains the static routing table.
type RoutingConfig struct {
	// ProxyPrefix is the path prefix under which requests are proxied.
	// Every route prefix must live under it.
	// Default: "/api/v1"
	ProxyPrefix string `yaml:"proxy_prefix"`

	// Routes maps path prefixes to downstream services.
	Routes []RouteConfig `yaml:"routes"`
}

// RouteConfig describes one routing rule.
type RouteConfig struct {
	// Prefix is the matched path prefix, stripped before forwarding.
	// Example: "/api/v1/identity"
	Prefix string `yaml:"prefix"`

	// Service is the downstream service name, the circuit breaker key.
	// Example: "identity"
	Service string `yaml:"service"`

	// Target is the downstream base URL.
	// Example: "http://identity-service:3001"
	Target string `yaml:"target"`

	// Auth is the authentication requirement: "none", "optional" or
	// "mandatory".
	// Default: "mandatory"
	Auth string `yaml:"auth"`

	// Roles, when non-empty, requires the caller to hold at least one of
	// the listed roles.
	Roles []string `yaml:"roles"`

	// Timeout overrides breaker.timeout for this route.
	Timeout time.Duration `yaml:"timeout"`
}

// JournalConfig contains configuration for the decision journal.
type JournalConfig struct {
	// Enabled controls whether rejections and circuit transitions are
	// journaled.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Driver selects the storage backend: "sqlite" (pure Go), "sqlite3"
	// (cgo) or "memory".
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// Path is the database file path for the sqlite drivers.
	// Default: "data/journal.db"
	Path string `yaml:"path"`

	// Buffer is the size of the asynchronous write buffer.
	// Default: 1024
	Buffer int `yaml:"buffer"`

	// RetentionDays is how long entries are kept before the scheduled
	// prune deletes them.
	// Default: 30
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is a cron expression for retention pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`

	// ArchivePath, when set, is a directory that receives a JSON export of
	// every batch of entries before the prune deletes them.
	ArchivePath string `yaml:"archive_path"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the metrics endpoint path.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace prefixes all metric names.
	// Default: "aegis"
	Namespace string `yaml:"namespace"`

	// DurationBuckets are the histogram buckets for downstream latency.
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of root traces sampled.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is reported as the service.name resource attribute.
	// Default: "aegis-gateway"
	ServiceName string `yaml:"service_name"`
}
