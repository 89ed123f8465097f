package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/aegis/pkg/breaker"
	"mercator-hq/aegis/pkg/config"
	"mercator-hq/aegis/pkg/proxy"
)

// Collector owns the gateway's Prometheus metrics.
//
// It observes pipeline events (proxy.EventObserver) and circuit transitions
// (breaker.Observer), so wiring it is a matter of registering it with both:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	breakers := breaker.NewRegistry(settings, services, breaker.WithObserver(collector))
//	pipeline, _ := proxy.NewPipeline(proxy.PipelineConfig{
//		Observers: []proxy.EventObserver{collector},
//		...
//	})
//
// Label values are bounded by the routing table and the fixed rejection
// codes, so no cardinality limiting is needed.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	requestMetrics   *RequestMetrics
	circuitMetrics   *CircuitMetrics
	rateLimitMetrics *RateLimitMetrics
}

var (
	_ proxy.EventObserver = (*Collector)(nil)
	_ breaker.Observer    = (*Collector)(nil)
)

// NewCollector creates a collector and registers its metrics with registry.
// A nil registry creates a fresh one.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.DurationBuckets) == 0 {
		// Downstream latencies from 5ms to 30s.
		cfg.DurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
	}

	return &Collector{
		config:           cfg,
		registry:         registry,
		requestMetrics:   NewRequestMetrics(cfg, registry),
		circuitMetrics:   NewCircuitMetrics(cfg, registry),
		rateLimitMetrics: NewRateLimitMetrics(cfg, registry),
	}
}

// RequestRejected records a request answered by the gateway itself.
func (c *Collector) RequestRejected(r proxy.Rejection) {
	if !c.config.Enabled {
		return
	}
	c.requestMetrics.RecordRejection(r.Service, string(r.Code))
}

// RequestCompleted records a forwarded request.
func (c *Collector) RequestCompleted(done proxy.Completion) {
	if !c.config.Enabled {
		return
	}
	c.requestMetrics.RecordCompletion(done.Service, done.Outcome)
}

// CircuitTransition records a circuit phase change.
func (c *Collector) CircuitTransition(t breaker.Transition) {
	if !c.config.Enabled {
		return
	}
	c.circuitMetrics.RecordTransition(t)
}

// ObserveCircuits sets the phase gauge from a registry snapshot. Call it
// once at startup so every service is exported before its first
// transition.
func (c *Collector) ObserveCircuits(snapshots []breaker.Snapshot) {
	if !c.config.Enabled {
		return
	}
	for _, s := range snapshots {
		c.circuitMetrics.SetPhase(s.Service, s.Phase)
	}
}

// RecordStoreError counts a failed rate limit store call.
func (c *Collector) RecordStoreError(operation string) {
	if !c.config.Enabled {
		return
	}
	c.rateLimitMetrics.RecordStoreError(operation)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
