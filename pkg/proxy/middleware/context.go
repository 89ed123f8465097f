package middleware

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// Context keys for storing values in request context. The request ID is
// stored under the logging package key so log records pick it up.
const (
	// StartTimeKey stores the request start time for latency calculation.
	StartTimeKey contextKey = "start_time"
)
