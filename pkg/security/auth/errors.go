package auth

import "errors"

// Classified authentication failures. Callers match them with errors.Is.
var (
	// ErrMissingCredentials is returned in mandatory mode when no
	// Authorization header is present.
	ErrMissingCredentials = errors.New("authorization header is required")

	// ErrInvalidToken covers unknown schemes, malformed tokens, bad
	// signatures and disallowed algorithms.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned when the current time is past the
	// token's exp claim.
	ErrExpiredToken = errors.New("token has expired")

	// ErrMissingRequiredClaim is returned when sub or tenantId is absent.
	ErrMissingRequiredClaim = errors.New("token is missing required claims")
)
