package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/aegis/pkg/breaker"
	"mercator-hq/aegis/pkg/config"
)

// CircuitMetrics tracks circuit breaker state.
//
// Metrics:
//   - aegis_circuit_state: current phase per service (0=closed, 1=open, 2=half_open)
//   - aegis_circuit_transitions_total: phase changes by service, from and to
type CircuitMetrics struct {
	state       *prometheus.GaugeVec
	transitions *prometheus.CounterVec
}

// NewCircuitMetrics creates and registers circuit metrics with the provided registry.
func NewCircuitMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CircuitMetrics {
	cm := &CircuitMetrics{
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "circuit_state",
				Help:      "Circuit breaker phase (0=closed, 1=open, 2=half_open)",
			},
			[]string{"service"},
		),

		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "circuit_transitions_total",
				Help:      "Circuit breaker phase transitions",
			},
			[]string{"service", "from", "to"},
		),
	}

	registry.MustRegister(cm.state, cm.transitions)
	return cm
}

// RecordTransition counts t and updates the phase gauge.
func (cm *CircuitMetrics) RecordTransition(t breaker.Transition) {
	cm.transitions.WithLabelValues(t.Service, t.From.String(), t.To.String()).Inc()
	cm.SetPhase(t.Service, t.To)
}

// SetPhase sets the phase gauge of service.
func (cm *CircuitMetrics) SetPhase(service string, p breaker.Phase) {
	cm.state.WithLabelValues(service).Set(float64(p))
}
