package config

import (
	"reflect"
	"testing"
	"time"
)

func TestApplyDefaults(t *testing.T) {
	tests := []struct {
		name  string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "server defaults",
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.ListenAddress != DefaultListenAddress {
					t.Errorf("expected listen address %q, got %q", DefaultListenAddress, cfg.Server.ListenAddress)
				}
				if cfg.Server.WriteTimeout != DefaultWriteTimeout {
					t.Errorf("expected write timeout %v, got %v", DefaultWriteTimeout, cfg.Server.WriteTimeout)
				}
				if cfg.Server.MaxHeaderBytes != DefaultMaxHeaderBytes {
					t.Errorf("expected max header bytes %d, got %d", DefaultMaxHeaderBytes, cfg.Server.MaxHeaderBytes)
				}
			},
		},
		{
			name: "auth defaults",
			check: func(t *testing.T, cfg *Config) {
				if cfg.Auth.SecretEnv != "JWT_SECRET" {
					t.Errorf("expected secret env %q, got %q", "JWT_SECRET", cfg.Auth.SecretEnv)
				}
				if cfg.Auth.MinSecretLength != 32 {
					t.Errorf("expected min secret length 32, got %d", cfg.Auth.MinSecretLength)
				}
				if !reflect.DeepEqual(cfg.Auth.Algorithms, []string{"HS256"}) {
					t.Errorf("expected algorithms [HS256], got %v", cfg.Auth.Algorithms)
				}
			},
		},
		{
			name: "rate limit defaults",
			check: func(t *testing.T, cfg *Config) {
				if cfg.RateLimit.Window != 15*time.Minute {
					t.Errorf("expected window 15m, got %v", cfg.RateLimit.Window)
				}
				if cfg.RateLimit.MaxRequests != 100 {
					t.Errorf("expected max requests 100, got %d", cfg.RateLimit.MaxRequests)
				}
				if cfg.RateLimit.Store != "redis" {
					t.Errorf("expected store redis, got %q", cfg.RateLimit.Store)
				}
			},
		},
		{
			name: "breaker defaults",
			check: func(t *testing.T, cfg *Config) {
				if cfg.Breaker.Timeout != 30*time.Second {
					t.Errorf("expected timeout 30s, got %v", cfg.Breaker.Timeout)
				}
				if cfg.Breaker.ErrorThresholdPercent != 50 {
					t.Errorf("expected threshold 50, got %d", cfg.Breaker.ErrorThresholdPercent)
				}
				if cfg.Breaker.ResetTimeout != 30*time.Second {
					t.Errorf("expected reset timeout 30s, got %v", cfg.Breaker.ResetTimeout)
				}
				if cfg.Breaker.SampleSize != 10 {
					t.Errorf("expected sample size 10, got %d", cfg.Breaker.SampleSize)
				}
			},
		},
		{
			name: "telemetry defaults",
			check: func(t *testing.T, cfg *Config) {
				if cfg.Telemetry.Logging.Level != "info" {
					t.Errorf("expected level info, got %q", cfg.Telemetry.Logging.Level)
				}
				if cfg.Telemetry.Metrics.Path != "/metrics" {
					t.Errorf("expected metrics path /metrics, got %q", cfg.Telemetry.Metrics.Path)
				}
				if cfg.Telemetry.Tracing.SampleRatio != 1.0 {
					t.Errorf("expected sample ratio 1.0, got %v", cfg.Telemetry.Tracing.SampleRatio)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			ApplyDefaults(cfg)
			tt.check(t, cfg)
		})
	}
}

func TestApplyDefaults_RouteAuth(t *testing.T) {
	cfg := &Config{Routing: RoutingConfig{Routes: []RouteConfig{
		{Prefix: "/api/v1/a"},
		{Prefix: "/api/v1/b", Auth: "none"},
	}}}
	ApplyDefaults(cfg)

	if cfg.Routing.Routes[0].Auth != "mandatory" {
		t.Errorf("expected default auth mandatory, got %q", cfg.Routing.Routes[0].Auth)
	}
	if cfg.Routing.Routes[1].Auth != "none" {
		t.Errorf("expected explicit auth to be kept, got %q", cfg.Routing.Routes[1].Auth)
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	cfg := &Config{}
	cfg.Server.ListenAddress = "127.0.0.1:9000"
	ApplyDefaults(cfg)
	first := *cfg
	ApplyDefaults(cfg)

	if !reflect.DeepEqual(first, *cfg) {
		t.Error("expected ApplyDefaults to be idempotent")
	}
	if cfg.Server.ListenAddress != "127.0.0.1:9000" {
		t.Errorf("expected explicit listen address to be kept, got %q", cfg.Server.ListenAddress)
	}
}
