package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/aegis/pkg/config"
	"mercator-hq/aegis/pkg/limits/ratelimit"
)

// RateLimitMetrics tracks the health of the rate limit counter store.
//
// Metrics:
//   - aegis_ratelimit_store_errors_total: failed store calls by operation
//   - aegis_ratelimit_store_duration_seconds: store call latency
type RateLimitMetrics struct {
	storeErrors   *prometheus.CounterVec
	storeDuration prometheus.Histogram
}

// NewRateLimitMetrics creates and registers rate limit metrics with the provided registry.
func NewRateLimitMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RateLimitMetrics {
	rl := &RateLimitMetrics{
		storeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "ratelimit_store_errors_total",
				Help:      "Rate limit store calls that failed; requests were admitted uncounted",
			},
			[]string{"operation"},
		),

		storeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "ratelimit_store_duration_seconds",
				Help:      "Latency of rate limit store increments",
				Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
			},
		),
	}

	registry.MustRegister(rl.storeErrors, rl.storeDuration)
	return rl
}

// RecordStoreError counts a failed store call.
func (rl *RateLimitMetrics) RecordStoreError(operation string) {
	rl.storeErrors.WithLabelValues(operation).Inc()
}

// InstrumentStore wraps store so its latency and failures are recorded by c.
func (c *Collector) InstrumentStore(store ratelimit.Store) ratelimit.Store {
	if !c.config.Enabled {
		return store
	}
	return &instrumentedStore{Store: store, metrics: c.rateLimitMetrics}
}

type instrumentedStore struct {
	ratelimit.Store
	metrics *RateLimitMetrics
}

func (s *instrumentedStore) Increment(ctx context.Context, key string, window time.Duration, now time.Time) (ratelimit.Window, error) {
	start := time.Now()
	w, err := s.Store.Increment(ctx, key, window, now)
	s.metrics.storeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordStoreError("increment")
	}
	return w, err
}

func (s *instrumentedStore) Ping(ctx context.Context) error {
	err := s.Store.Ping(ctx)
	if err != nil {
		s.metrics.RecordStoreError("ping")
	}
	return err
}
