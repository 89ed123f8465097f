package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Valid route authentication modes.
var validAuthModes = map[string]bool{"none": true, "optional": true, "mandatory": true}

// Valid HMAC signing methods.
var validAlgorithms = map[string]bool{"HS256": true, "HS384": true, "HS512": true}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateAuth(&cfg.Auth)...)
	errs = append(errs, validateRateLimit(&cfg.RateLimit)...)
	errs = append(errs, validateBreaker(&cfg.Breaker)...)
	errs = append(errs, validateRouting(&cfg.Routing, &cfg.Breaker, &cfg.Server)...)
	errs = append(errs, validateJournal(&cfg.Journal)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates HTTP server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	// Validate listen address is not empty
	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}

	// Validate timeouts are positive
	durations := []struct {
		field string
		value time.Duration
	}{
		{"server.read_timeout", cfg.ReadTimeout},
		{"server.write_timeout", cfg.WriteTimeout},
		{"server.idle_timeout", cfg.IdleTimeout},
		{"server.shutdown_timeout", cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		if d.value < 0 {
			errs = append(errs, FieldError{Field: d.field, Message: "timeout must be positive"})
		}
	}

	// Validate max header bytes is reasonable
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}
	if cfg.MaxHeaderBytes > 10*1024*1024 { // 10MB is excessive
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes exceeds reasonable limit (10MB)",
		})
	}

	// Validate TLS termination
	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" {
			errs = append(errs, FieldError{
				Field:   "server.tls.cert_file",
				Message: "cert file is required when TLS is enabled",
			})
		}
		if cfg.TLS.KeyFile == "" {
			errs = append(errs, FieldError{
				Field:   "server.tls.key_file",
				Message: "key file is required when TLS is enabled",
			})
		}
		if cfg.TLS.MinVersion != "1.2" && cfg.TLS.MinVersion != "1.3" {
			errs = append(errs, FieldError{
				Field:   "server.tls.min_version",
				Message: fmt.Sprintf("unsupported TLS version %q (must be 1.2 or 1.3)", cfg.TLS.MinVersion),
			})
		}
		if cfg.TLS.ReloadInterval < 0 {
			errs = append(errs, FieldError{
				Field:   "server.tls.reload_interval",
				Message: "reload interval must be non-negative",
			})
		}
	}

	// Validate CORS
	if cfg.CORS.Enabled {
		if len(cfg.CORS.AllowedOrigins) == 0 {
			errs = append(errs, FieldError{
				Field:   "server.cors.allowed_origins",
				Message: "at least one allowed origin is required when CORS is enabled",
			})
		}
		for _, origin := range cfg.CORS.AllowedOrigins {
			if origin == "*" && cfg.CORS.AllowCredentials {
				errs = append(errs, FieldError{
					Field:   "server.cors.allow_credentials",
					Message: "credentials cannot be allowed with wildcard origin",
				})
			}
		}
		if cfg.CORS.MaxAge < 0 {
			errs = append(errs, FieldError{
				Field:   "server.cors.max_age",
				Message: "max age must be non-negative",
			})
		}
	}

	return errs
}

// validateAuth validates token validation configuration. The secret itself
// may come from the environment or a file, so its length is checked when the
// secret source is resolved at startup. An inline secret is checked here.
func validateAuth(cfg *AuthConfig) []FieldError {
	var errs []FieldError

	if cfg.MinSecretLength < 1 {
		errs = append(errs, FieldError{
			Field:   "auth.min_secret_length",
			Message: "minimum secret length must be at least 1",
		})
	}
	if cfg.Secret != "" && len(cfg.Secret) < cfg.MinSecretLength {
		errs = append(errs, FieldError{
			Field:   "auth.secret",
			Message: fmt.Sprintf("secret must be at least %d characters", cfg.MinSecretLength),
		})
	}
	if cfg.WatchSecret && cfg.SecretFile == "" {
		errs = append(errs, FieldError{
			Field:   "auth.watch_secret",
			Message: "watch_secret requires secret_file",
		})
	}
	for i, alg := range cfg.Algorithms {
		if !validAlgorithms[alg] {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("auth.algorithms[%d]", i),
				Message: fmt.Sprintf("unsupported algorithm %q (must be HS256, HS384 or HS512)", alg),
			})
		}
	}

	return errs
}

// validateRateLimit validates rate limiting configuration.
func validateRateLimit(cfg *RateLimitConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return errs
	}

	// Validate window and quota
	if cfg.Window <= 0 {
		errs = append(errs, FieldError{
			Field:   "ratelimit.window",
			Message: "window must be positive",
		})
	}
	if cfg.MaxRequests <= 0 {
		errs = append(errs, FieldError{
			Field:   "ratelimit.max_requests",
			Message: "max requests must be positive",
		})
	}

	// Validate store-specific configuration
	switch cfg.Store {
	case "redis":
		if cfg.Redis.Address == "" {
			errs = append(errs, FieldError{
				Field:   "ratelimit.redis.address",
				Message: "redis address is required when store is redis",
			})
		}
		if cfg.Redis.DB < 0 {
			errs = append(errs, FieldError{
				Field:   "ratelimit.redis.db",
				Message: "redis db must be non-negative",
			})
		}
		if cfg.Redis.DialTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   "ratelimit.redis.dial_timeout",
				Message: "dial timeout must be positive",
			})
		}
	case "memory":
	default:
		errs = append(errs, FieldError{
			Field:   "ratelimit.store",
			Message: fmt.Sprintf("invalid store %q (must be redis or memory)", cfg.Store),
		})
	}

	return errs
}

// validateBreaker validates circuit breaker configuration.
func validateBreaker(cfg *BreakerConfig) []FieldError {
	var errs []FieldError

	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "breaker.timeout",
			Message: "timeout must be positive",
		})
	}
	if cfg.ErrorThresholdPercent < 1 || cfg.ErrorThresholdPercent > 100 {
		errs = append(errs, FieldError{
			Field:   "breaker.error_threshold_percent",
			Message: "error threshold must be between 1 and 100",
		})
	}
	if cfg.ResetTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "breaker.reset_timeout",
			Message: "reset timeout must be positive",
		})
	}
	if cfg.SampleSize < 1 {
		errs = append(errs, FieldError{
			Field:   "breaker.sample_size",
			Message: "sample size must be at least 1",
		})
	}

	return errs
}

// validateRouting validates the routing table. Every route must sit under
// the proxy prefix, prefixes must be unique and targets must be absolute
// http(s) URLs. A route timeout must fit inside the server write timeout or
// the client connection would be cut before the 503 could be written.
func validateRouting(cfg *RoutingConfig, breaker *BreakerConfig, server *ServerConfig) []FieldError {
	var errs []FieldError

	if !strings.HasPrefix(cfg.ProxyPrefix, "/") {
		errs = append(errs, FieldError{
			Field:   "routing.proxy_prefix",
			Message: "proxy prefix must start with /",
		})
	}

	if len(cfg.Routes) == 0 {
		errs = append(errs, FieldError{
			Field:   "routing.routes",
			Message: "at least one route must be configured",
		})
		return errs
	}

	seen := make(map[string]int, len(cfg.Routes))
	for i, route := range cfg.Routes {
		prefix := fmt.Sprintf("routing.routes[%d]", i)

		switch {
		case route.Prefix == "":
			errs = append(errs, FieldError{Field: prefix + ".prefix", Message: "prefix is required"})
		case !strings.HasPrefix(route.Prefix, cfg.ProxyPrefix+"/"):
			errs = append(errs, FieldError{
				Field:   prefix + ".prefix",
				Message: fmt.Sprintf("prefix %q must be under proxy prefix %q", route.Prefix, cfg.ProxyPrefix),
			})
		case strings.HasSuffix(route.Prefix, "/"):
			errs = append(errs, FieldError{Field: prefix + ".prefix", Message: "prefix must not end with /"})
		}
		if j, dup := seen[route.Prefix]; dup && route.Prefix != "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".prefix",
				Message: fmt.Sprintf("duplicate prefix %q (also routes[%d])", route.Prefix, j),
			})
		}
		seen[route.Prefix] = i

		if route.Service == "" {
			errs = append(errs, FieldError{Field: prefix + ".service", Message: "service name is required"})
		}

		// Validate target URL
		if route.Target == "" {
			errs = append(errs, FieldError{Field: prefix + ".target", Message: "target URL is required"})
		} else if u, err := url.Parse(route.Target); err != nil {
			errs = append(errs, FieldError{
				Field:   prefix + ".target",
				Message: fmt.Sprintf("invalid URL format: %v", err),
			})
		} else if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".target",
				Message: "target must be an absolute http or https URL",
			})
		}

		// Validate auth mode and roles
		if !validAuthModes[route.Auth] {
			errs = append(errs, FieldError{
				Field:   prefix + ".auth",
				Message: fmt.Sprintf("invalid auth mode %q (must be none, optional or mandatory)", route.Auth),
			})
		}
		if route.Auth == "none" && len(route.Roles) > 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".roles",
				Message: "roles cannot be required on a route with auth none",
			})
		}

		// Validate downstream timeout against the server write timeout
		if route.Timeout < 0 {
			errs = append(errs, FieldError{Field: prefix + ".timeout", Message: "timeout must be positive"})
		}
		timeout := route.Timeout
		if timeout == 0 {
			timeout = breaker.Timeout
		}
		if server.WriteTimeout > 0 && timeout >= server.WriteTimeout {
			errs = append(errs, FieldError{
				Field:   prefix + ".timeout",
				Message: fmt.Sprintf("downstream timeout %s must be less than server.write_timeout %s", timeout, server.WriteTimeout),
			})
		}
	}

	return errs
}

// validateJournal validates decision journal configuration.
func validateJournal(cfg *JournalConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return errs
	}

	// Validate driver
	switch cfg.Driver {
	case "sqlite", "sqlite3":
		if cfg.Path == "" {
			errs = append(errs, FieldError{Field: "journal.path", Message: "path is required for sqlite drivers"})
		}
	case "memory":
	default:
		errs = append(errs, FieldError{
			Field:   "journal.driver",
			Message: fmt.Sprintf("invalid driver %q (must be sqlite, sqlite3 or memory)", cfg.Driver),
		})
	}

	if cfg.Buffer < 1 {
		errs = append(errs, FieldError{Field: "journal.buffer", Message: "buffer must be at least 1"})
	}
	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{Field: "journal.retention_days", Message: "retention days must be non-negative"})
	}
	// Validate retention schedule
	if _, err := cron.ParseStandard(cfg.PruneSchedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "journal.prune_schedule",
			Message: fmt.Sprintf("invalid cron expression: %v", err),
		})
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be debug, info, warn or error)", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be json or text)", cfg.Logging.Format),
		})
	}

	// Validate metrics
	if cfg.Metrics.Enabled {
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path must start with /",
			})
		}
		for i := 1; i < len(cfg.Metrics.DurationBuckets); i++ {
			if cfg.Metrics.DurationBuckets[i] <= cfg.Metrics.DurationBuckets[i-1] {
				errs = append(errs, FieldError{
					Field:   "telemetry.metrics.duration_buckets",
					Message: "buckets must be strictly increasing",
				})
				break
			}
		}
	}

	// Validate tracing
	if cfg.Tracing.Enabled {
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.endpoint",
				Message: "endpoint is required when tracing is enabled",
			})
		}
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sample_ratio",
				Message: "sample ratio must be between 0 and 1",
			})
		}
	}

	return errs
}
