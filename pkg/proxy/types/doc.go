// Package types defines the client-visible error envelope of the gateway.
//
// Every rejection, whatever stage produced it, is written with WriteError as
//
//	{"error": "<label>", "message": "<text>", "timestamp": "<RFC 3339>"}
//
// Status and label pairs:
//
//	401 Unauthorized         missing, invalid or expired token
//	403 Forbidden            role check failed
//	404 Not Found            no route under the proxy prefix
//	429 Too Many Requests    rate limit exceeded
//	503 Service Unavailable  circuit open or downstream unreachable
//	500 Internal Server Error
//
// The Code field classifies the rejection for logs, metrics and the journal
// and is not serialized.
package types
