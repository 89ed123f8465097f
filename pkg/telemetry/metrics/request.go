package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/aegis/pkg/config"
	"mercator-hq/aegis/pkg/proxy"
)

// RequestMetrics tracks forwarded and rejected requests.
//
// Metrics:
//   - aegis_requests_total: forwarded requests by service and outcome
//   - aegis_downstream_responses_total: downstream responses by service and status class
//   - aegis_downstream_duration_seconds: time spent forwarding, by service
//   - aegis_rejections_total: gateway rejections by service and code
type RequestMetrics struct {
	requestsTotal      *prometheus.CounterVec
	responsesTotal     *prometheus.CounterVec
	downstreamDuration *prometheus.HistogramVec
	rejectionsTotal    *prometheus.CounterVec
}

// NewRequestMetrics creates and registers request metrics with the provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "requests_total",
				Help:      "Total number of requests forwarded to downstream services",
			},
			[]string{"service", "outcome"},
		),

		responsesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "downstream_responses_total",
				Help:      "Downstream responses by status class",
			},
			[]string{"service", "class"},
		),

		downstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "downstream_duration_seconds",
				Help:      "Time spent forwarding requests to downstream services",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"service"},
		),

		rejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "rejections_total",
				Help:      "Requests rejected by the gateway",
			},
			[]string{"service", "code"},
		),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.responsesTotal,
		rm.downstreamDuration,
		rm.rejectionsTotal,
	)

	return rm
}

// RecordCompletion records the outcome of one forwarded request.
func (rm *RequestMetrics) RecordCompletion(service string, o proxy.Outcome) {
	rm.requestsTotal.WithLabelValues(service, o.Label()).Inc()
	if o.Status > 0 {
		rm.responsesTotal.WithLabelValues(service, statusClass(o.Status)).Inc()
	}
	if !o.Abandoned {
		rm.downstreamDuration.WithLabelValues(service).Observe(o.Duration.Seconds())
	}
}

// RecordRejection records a gateway rejection. Rejections before routing
// have no service and are labeled "none".
func (rm *RequestMetrics) RecordRejection(service, code string) {
	if service == "" {
		service = "none"
	}
	rm.rejectionsTotal.WithLabelValues(service, code).Inc()
}

// statusClass returns "2xx", "4xx" and so on.
func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}
