package types

import (
	"encoding/json"
	"net/http"
	"time"
)

// Code classifies a gateway rejection. Codes are stable and appear in logs,
// metrics and the decision journal but not in the client envelope.
type Code string

// Rejection codes.
const (
	CodeMissingCredentials    Code = "missing_credentials"
	CodeInvalidToken          Code = "invalid_token"
	CodeExpiredToken          Code = "expired_token"
	CodeMissingRequiredClaim  Code = "missing_required_claim"
	CodeInsufficientRole      Code = "insufficient_role"
	CodeRateLimitExceeded     Code = "rate_limit_exceeded"
	CodeCircuitOpen           Code = "circuit_open"
	CodeDownstreamUnavailable Code = "downstream_unavailable"
	CodeRouteNotFound         Code = "route_not_found"
	CodeInternalError         Code = "internal_error"
)

// Error labels used in the envelope "error" field.
const (
	ErrorUnauthorized       = "Unauthorized"
	ErrorForbidden          = "Forbidden"
	ErrorNotFound           = "Not Found"
	ErrorTooManyRequests    = "Too Many Requests"
	ErrorServiceUnavailable = "Service Unavailable"
	ErrorInternal           = "Internal Server Error"
)

// ErrorResponse is the JSON envelope returned for every rejection:
//
//	{"error": "Unauthorized", "message": "Invalid token", "timestamp": "2025-11-16T10:30:00Z"}
type ErrorResponse struct {
	// Error is the short status label.
	Error string `json:"error"`

	// Message is a human-readable explanation.
	Message string `json:"message"`

	// Timestamp is when the response was produced, in RFC 3339.
	Timestamp string `json:"timestamp"`

	// Status is the HTTP status code.
	Status int `json:"-"`

	// Code classifies the rejection.
	Code Code `json:"-"`
}

// NewErrorResponse creates an envelope with the given details. The
// timestamp is filled in when the response is written.
func NewErrorResponse(status int, code Code, label, message string) *ErrorResponse {
	return &ErrorResponse{
		Error:   label,
		Message: message,
		Status:  status,
		Code:    code,
	}
}

// NewUnauthorizedError creates a 401 envelope.
func NewUnauthorizedError(code Code, message string) *ErrorResponse {
	return NewErrorResponse(http.StatusUnauthorized, code, ErrorUnauthorized, message)
}

// NewForbiddenError creates a 403 envelope for a failed role check.
func NewForbiddenError() *ErrorResponse {
	return NewErrorResponse(http.StatusForbidden, CodeInsufficientRole, ErrorForbidden, "Insufficient permissions")
}

// NewNotFoundError creates a 404 envelope for an unmatched route.
func NewNotFoundError() *ErrorResponse {
	return NewErrorResponse(http.StatusNotFound, CodeRouteNotFound, ErrorNotFound, "Route not found")
}

// NewRateLimitError creates a 429 envelope.
func NewRateLimitError() *ErrorResponse {
	return NewErrorResponse(http.StatusTooManyRequests, CodeRateLimitExceeded, ErrorTooManyRequests,
		"Too many requests, please try again later")
}

// NewCircuitOpenError creates a 503 envelope for a rejected circuit.
func NewCircuitOpenError() *ErrorResponse {
	return NewErrorResponse(http.StatusServiceUnavailable, CodeCircuitOpen, ErrorServiceUnavailable,
		"Circuit breaker is OPEN")
}

// NewDownstreamUnavailableError creates a 503 envelope for a transport
// failure talking to service.
func NewDownstreamUnavailableError(service string) *ErrorResponse {
	return NewErrorResponse(http.StatusServiceUnavailable, CodeDownstreamUnavailable, ErrorServiceUnavailable,
		service+" service is unavailable")
}

// NewInternalError creates a 500 envelope. Internal details are never
// included.
func NewInternalError() *ErrorResponse {
	return NewErrorResponse(http.StatusInternalServerError, CodeInternalError, ErrorInternal,
		"An internal error occurred")
}

// HTTPStatusCode returns the status to send, defaulting to 500.
func (e *ErrorResponse) HTTPStatusCode() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

// WriteError writes resp as JSON with its status code. A missing timestamp
// is set to the current UTC time.
func WriteError(w http.ResponseWriter, resp *ErrorResponse) {
	if resp.Timestamp == "" {
		resp.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(resp.HTTPStatusCode())

	// Encoding a flat struct of strings cannot fail; write errors mean the
	// client is gone.
	_ = json.NewEncoder(w).Encode(resp)
}
