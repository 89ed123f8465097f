package proxy

import (
	"errors"
	"fmt"

	"mercator-hq/aegis/pkg/breaker"
	"mercator-hq/aegis/pkg/proxy/types"
	"mercator-hq/aegis/pkg/routing"
	"mercator-hq/aegis/pkg/security/auth"
)

// Pipeline errors that can be checked with errors.Is().
var (
	// ErrRateLimitExceeded is returned when a client exceeds its ceiling.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInsufficientRole is returned when the caller lacks a required role.
	ErrInsufficientRole = errors.New("insufficient role")

	// ErrDownstreamUnavailable is returned when the downstream service
	// cannot be reached or times out.
	ErrDownstreamUnavailable = errors.New("downstream unavailable")
)

// DownstreamError wraps a transport failure talking to a service.
type DownstreamError struct {
	// Service is the downstream service name.
	Service string

	// Err is the transport error.
	Err error
}

// Error implements the error interface.
func (e *DownstreamError) Error() string {
	return fmt.Sprintf("%s service unavailable: %v", e.Service, e.Err)
}

// Unwrap returns the transport error.
func (e *DownstreamError) Unwrap() error {
	return e.Err
}

// Is implements error matching for errors.Is().
func (e *DownstreamError) Is(target error) bool {
	return target == ErrDownstreamUnavailable
}

// HandleError maps a pipeline error to the envelope sent to the client.
// Unknown errors map to 500 without exposing details.
//
// Example usage:
//
//	if err != nil {
//	    types.WriteError(w, HandleError(err))
//	    return
//	}
func HandleError(err error) *types.ErrorResponse {
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		return types.NewUnauthorizedError(types.CodeMissingCredentials, "Authorization header is required")
	case errors.Is(err, auth.ErrExpiredToken):
		return types.NewUnauthorizedError(types.CodeExpiredToken, "Token has expired")
	case errors.Is(err, auth.ErrMissingRequiredClaim):
		return types.NewUnauthorizedError(types.CodeMissingRequiredClaim, "Token is missing required claims")
	case errors.Is(err, auth.ErrInvalidToken):
		return types.NewUnauthorizedError(types.CodeInvalidToken, "Invalid token")
	case errors.Is(err, ErrInsufficientRole):
		return types.NewForbiddenError()
	case errors.Is(err, ErrRateLimitExceeded):
		return types.NewRateLimitError()
	case errors.Is(err, breaker.ErrCircuitOpen):
		return types.NewCircuitOpenError()
	case errors.Is(err, routing.ErrRouteNotFound):
		return types.NewNotFoundError()
	}

	var downstreamErr *DownstreamError
	if errors.As(err, &downstreamErr) {
		return types.NewDownstreamUnavailableError(downstreamErr.Service)
	}

	return types.NewInternalError()
}
