package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"mercator-hq/aegis/pkg/telemetry/logging"
)

const (
	// RequestIDHeader is the HTTP header for request ID.
	RequestIDHeader = "X-Request-ID"

	// maxRequestIDLength bounds client supplied ids.
	maxRequestIDLength = 128
)

// RequestIDMiddleware assigns a request ID to every request, adds it to the
// context and sets it on the response. A client supplied X-Request-ID is
// reused when it is printable and at most 128 bytes.
//
// Example usage:
//
//	handler = RequestIDMiddleware(handler)
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Reuse the client's ID or generate a new one
		requestID := r.Header.Get(RequestIDHeader)
		if !validRequestID(requestID) {
			requestID = NewRequestID(time.Now())
		}

		// Downstream forwarding reads the header from the request.
		r.Header.Set(RequestIDHeader, requestID)
		w.Header().Set(RequestIDHeader, requestID)

		// Add to context for loggers
		ctx := logging.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// NewRequestID returns an id of the form req_<unixMillis>_<suffix>, where
// suffix is nine random hex characters.
//
// Example output: "req_1731752400000_3f9a1c2be"
func NewRequestID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("req_%d_%s", now.UnixMilli(), suffix)
}

// GetRequestID extracts the request ID from the context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	return logging.GetRequestID(ctx)
}

// validRequestID accepts printable ASCII without spaces.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
