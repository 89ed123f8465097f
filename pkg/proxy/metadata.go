package proxy

import (
	"net/http"
	"time"

	"mercator-hq/aegis/pkg/proxy/types"
	"mercator-hq/aegis/pkg/telemetry/logging"
)

// RequestMetadata describes an inbound request for logging, metrics and the
// decision journal.
type RequestMetadata struct {
	// RequestID is the X-Request-ID assigned to the request.
	RequestID string

	// Method is the HTTP method.
	Method string

	// Path is the request path.
	Path string

	// ClientKey is the rate limit key of the caller.
	ClientKey string

	// RemoteAddr is the client address as seen by the server.
	RemoteAddr string

	// UserAgent is the client's user agent string.
	UserAgent string

	// Timestamp is when the pipeline received the request.
	Timestamp time.Time
}

// ExtractRequestMetadata collects metadata from r.
func ExtractRequestMetadata(r *http.Request, clientKey string, now time.Time) RequestMetadata {
	requestID := logging.GetRequestID(r.Context())
	if requestID == "" {
		requestID = r.Header.Get("X-Request-ID")
	}

	return RequestMetadata{
		RequestID:  requestID,
		Method:     r.Method,
		Path:       r.URL.Path,
		ClientKey:  clientKey,
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent(),
		Timestamp:  now,
	}
}

// Rejection is reported for every request the pipeline answers itself.
type Rejection struct {
	RequestMetadata

	// Code classifies the rejection.
	Code types.Code

	// Status is the HTTP status sent to the client.
	Status int

	// Service is the matched service, empty when rejected before routing.
	Service string

	// Subject is the authenticated caller, if any.
	Subject string

	// Reason is the underlying error text. It never contains credentials.
	Reason string
}

// Completion is reported when a forwarded request settles.
type Completion struct {
	RequestMetadata

	// Service is the downstream service name.
	Service string

	// Outcome is the forwarding result.
	Outcome Outcome
}

// EventObserver receives pipeline events. Implementations must not block;
// they run on the request goroutine.
type EventObserver interface {
	RequestRejected(r Rejection)
	RequestCompleted(c Completion)
}
