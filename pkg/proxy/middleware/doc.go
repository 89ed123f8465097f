// Package middleware provides HTTP middleware for cross-cutting concerns.
//
// # Middleware Chain
//
// The server wraps the dispatch pipeline as:
//
//	handler = Recovery(Logging(RequestID(CORS(pipeline))))
//
// Order (outermost first):
//  1. RecoveryMiddleware: turns panics into a 500 envelope
//  2. LoggingMiddleware: one structured log line per request
//  3. RequestIDMiddleware: reuses or generates X-Request-ID
//  4. CORSMiddleware: CORS headers and preflight answers
//
// # Request ID
//
// Generated ids have the form req_<unixMillis>_<suffix>:
//
//	X-Request-ID: req_1731752400000_3f9a1c2be
//
// The id is set on the response, written back onto the inbound request so
// the forwarder passes it downstream, and stored in the context where the
// logging package adds it to every record.
package middleware
