// Aegis is an edge gateway for a multi-service backend.
//
// Every request is rate limited per client, matched to a downstream
// service, checked against that service's circuit breaker, authenticated
// with a JWT and then proxied. Rejections and circuit transitions are
// recorded in a local decision journal.
//
// Usage:
//
//	# Start the gateway
//	aegis run --config aegis.yaml
//
//	# Check a configuration file
//	aegis validate --config aegis.yaml
//
//	# Show the routing table
//	aegis routes
//
//	# Inspect recent rejections
//	aegis journal list --kind rejection --since 1h
//
//	# Show version information
//	aegis version
package main

func main() {
	Execute()
}
