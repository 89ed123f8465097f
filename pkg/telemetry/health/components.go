package health

import (
	"context"

	"mercator-hq/aegis/pkg/breaker"
	"mercator-hq/aegis/pkg/routing"
)

// Pinger is implemented by dependencies that can report reachability, such
// as the rate limit store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck returns a readiness check backed by p.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		return p.Ping(ctx)
	}
}

// CircuitDetail reports every circuit of reg. Any circuit that is not
// CLOSED degrades the overall status.
func CircuitDetail(reg *breaker.Registry) DetailFunc {
	return func() (any, bool) {
		snapshots := reg.Snapshot()
		degraded := false
		for _, s := range snapshots {
			if s.Phase != breaker.Closed {
				degraded = true
			}
		}
		return snapshots, degraded
	}
}

// RoutingDetail reports the routing table lookup statistics.
func RoutingDetail(table *routing.Table) DetailFunc {
	return func() (any, bool) {
		return map[string]any{
			"services": table.Services(),
			"stats":    table.Stats(),
		}, false
	}
}
