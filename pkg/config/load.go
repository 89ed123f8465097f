package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix shared by all environment variable overrides.
const EnvPrefix = "AEGIS_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	cfg, err := parseFile(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention AEGIS_SECTION_FIELD (e.g., AEGIS_SERVER_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
//
// An empty path skips step 1, so the gateway can run from defaults and
// environment alone.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = DefaultConfig()
	} else {
		parsed, err := parseFile(path)
		if err != nil {
			return nil, err
		}
		cfg = parsed
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// parseFile reads and decodes path, then applies defaults.
func parseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML configuration and applies defaults. Unknown fields are
// rejected so that typos surface at startup rather than as silently ignored
// settings. It does not validate.
func Parse(data []byte) (*Config, error) {
	// Seed booleans that default to true so an omitted key keeps its default
	// and an explicit false still wins.
	cfg := &Config{}
	cfg.RateLimit.Enabled = DefaultRateLimitEnabled
	cfg.Journal.Enabled = DefaultJournalEnabled
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format AEGIS_SECTION_FIELD. Malformed values
// are ignored and the file or default value is kept.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	envDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	envInt("SERVER_MAX_HEADER_BYTES", &cfg.Server.MaxHeaderBytes)
	envBool("SERVER_CORS_ENABLED", &cfg.Server.CORS.Enabled)
	envStringList("SERVER_CORS_ALLOWED_ORIGINS", &cfg.Server.CORS.AllowedOrigins)
	envBool("SERVER_TLS_ENABLED", &cfg.Server.TLS.Enabled)
	envString("SERVER_TLS_CERT_FILE", &cfg.Server.TLS.CertFile)
	envString("SERVER_TLS_KEY_FILE", &cfg.Server.TLS.KeyFile)
	envString("SERVER_TLS_MIN_VERSION", &cfg.Server.TLS.MinVersion)

	// Auth overrides
	envString("AUTH_SECRET", &cfg.Auth.Secret)
	envString("AUTH_SECRET_ENV", &cfg.Auth.SecretEnv)
	envString("AUTH_SECRET_FILE", &cfg.Auth.SecretFile)
	envBool("AUTH_WATCH_SECRET", &cfg.Auth.WatchSecret)
	envInt("AUTH_MIN_SECRET_LENGTH", &cfg.Auth.MinSecretLength)

	// Rate limit overrides
	envBool("RATELIMIT_ENABLED", &cfg.RateLimit.Enabled)
	envDuration("RATELIMIT_WINDOW", &cfg.RateLimit.Window)
	if val := os.Getenv(EnvPrefix + "RATELIMIT_MAX_REQUESTS"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.RateLimit.MaxRequests = i
		}
	}
	envString("RATELIMIT_KEY_HEADER", &cfg.RateLimit.KeyHeader)
	envBool("RATELIMIT_TRUST_FORWARDED_FOR", &cfg.RateLimit.TrustForwardedFor)
	envString("RATELIMIT_STORE", &cfg.RateLimit.Store)
	envString("RATELIMIT_REDIS_ADDRESS", &cfg.RateLimit.Redis.Address)
	envString("RATELIMIT_REDIS_PASSWORD", &cfg.RateLimit.Redis.Password)
	envInt("RATELIMIT_REDIS_DB", &cfg.RateLimit.Redis.DB)
	envString("RATELIMIT_REDIS_PREFIX", &cfg.RateLimit.Redis.Prefix)
	envDuration("RATELIMIT_REDIS_DIAL_TIMEOUT", &cfg.RateLimit.Redis.DialTimeout)

	// Breaker overrides
	envDuration("BREAKER_TIMEOUT", &cfg.Breaker.Timeout)
	envInt("BREAKER_ERROR_THRESHOLD_PERCENT", &cfg.Breaker.ErrorThresholdPercent)
	envDuration("BREAKER_RESET_TIMEOUT", &cfg.Breaker.ResetTimeout)
	envInt("BREAKER_SAMPLE_SIZE", &cfg.Breaker.SampleSize)

	// Routing overrides
	envString("ROUTING_PROXY_PREFIX", &cfg.Routing.ProxyPrefix)

	// Journal overrides
	envBool("JOURNAL_ENABLED", &cfg.Journal.Enabled)
	envString("JOURNAL_DRIVER", &cfg.Journal.Driver)
	envString("JOURNAL_PATH", &cfg.Journal.Path)
	envInt("JOURNAL_BUFFER", &cfg.Journal.Buffer)
	envInt("JOURNAL_RETENTION_DAYS", &cfg.Journal.RetentionDays)
	envString("JOURNAL_PRUNE_SCHEDULE", &cfg.Journal.PruneSchedule)
	envString("JOURNAL_ARCHIVE_PATH", &cfg.Journal.ArchivePath)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_LOGGING_ADD_SOURCE", &cfg.Telemetry.Logging.AddSource)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envString("TELEMETRY_METRICS_NAMESPACE", &cfg.Telemetry.Metrics.Namespace)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envBool("TELEMETRY_TRACING_INSECURE", &cfg.Telemetry.Tracing.Insecure)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
	envString("TELEMETRY_TRACING_SERVICE_NAME", &cfg.Telemetry.Tracing.ServiceName)
}

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

// envStringList reads a comma separated list. Empty items are dropped.
func envStringList(name string, dst *[]string) {
	val := os.Getenv(EnvPrefix + name)
	if val == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}
