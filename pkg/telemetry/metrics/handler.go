package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns an HTTP handler for the Prometheus metrics endpoint,
// mounted at MetricsConfig.Path.
//
// Example:
//
//	collector := metrics.NewCollector(cfg, nil)
//	mux.Handle("/metrics", collector.Handler())
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(
		c.registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorHandling:     promhttp.ContinueOnError,
			// Scrapes beyond this are answered with 503.
			MaxRequestsInFlight: 4,
		},
	)
}

// RegisterRuntimeCollectors adds the Go runtime and process collectors to
// the registry.
func (c *Collector) RegisterRuntimeCollectors() {
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}
