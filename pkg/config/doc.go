// Package config provides configuration management for the Aegis gateway.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with comprehensive validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention AEGIS_SECTION_FIELD.
// For example:
//
//   - AEGIS_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - AEGIS_RATELIMIT_REDIS_ADDRESS overrides ratelimit.redis.address
//   - AEGIS_BREAKER_RESET_TIMEOUT overrides breaker.reset_timeout
//
// The routing table has no environment overrides; routes come from the file.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// The loaded *Config is passed explicitly to each component at startup.
// There is no package-level instance.
//
// # Validation
//
// Validation collects every problem before failing:
//
//	configuration validation failed with 2 errors:
//	  - routing.routes[0].target: target must be an absolute http or https URL
//	  - breaker.error_threshold_percent: error threshold must be between 1 and 100
//
// # Example Configuration
//
//	server:
//	  listen_address: "0.0.0.0:8080"
//
//	auth:
//	  secret_env: "JWT_SECRET"
//
//	ratelimit:
//	  window: "15m"
//	  max_requests: 100
//	  redis:
//	    address: "redis:6379"
//
//	routing:
//	  proxy_prefix: "/api/v1"
//	  routes:
//	    - prefix: "/api/v1/identity"
//	      service: "identity"
//	      target: "http://identity-service:3001"
//	      auth: "optional"
//	    - prefix: "/api/v1/credentials"
//	      service: "credential"
//	      target: "http://credential-service:3002"
package config
