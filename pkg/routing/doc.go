// Package routing maps request paths to downstream services.
//
// Each rule binds a path prefix under the proxy prefix to a service name, a
// target base URL and an authentication mode. Lookups pick the longest
// matching prefix on whole path segments:
//
//	table, err := routing.NewTable(cfg.Routing, cfg.Breaker.Timeout)
//	rule, err := table.Match("/api/v1/identity/users/42")
//	// rule.Service == "identity"
//	// rule.StripPrefix(path) == "/users/42"
//
// Paths outside the proxy prefix (health, metrics) are not routed.
package routing
