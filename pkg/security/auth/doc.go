/*
Package auth verifies caller credentials for the Aegis gateway.

Two Authorization header schemes are accepted and validated identically:

	Authorization: Bearer <jwt>    user session
	Authorization: Service <jwt>   service-to-service

Tokens are HMAC signed (HS256 by default) with a single shared secret
supplied by a SecretSource. A verified token yields an Identity; required
claims are sub and tenantId. Optional claims fall back to defaults: roles to
["user"], tier to "standard", email to "" and permissions to an empty list.

# Basic Usage

	validator := auth.NewValidator(auth.StaticSecret(secret), []string{"HS256"})

	id, err := validator.Authenticate(ctx, r.Header.Get("Authorization"), auth.ModeMandatory)
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
	    // 401 Authorization header is required
	case errors.Is(err, auth.ErrExpiredToken):
	    // 401 Token has expired
	case err != nil:
	    // 401
	}
	ctx = auth.WithIdentity(ctx, id)

# Modes

  - none: the header is never inspected.
  - optional: a valid token attaches an identity; a missing or invalid one
    proceeds anonymously.
  - mandatory: a missing header is ErrMissingCredentials and any validation
    failure rejects the request.

# Security Considerations

  - Token values are never logged.
  - The secret must meet the configured minimum length; see package secrets.
  - Only HMAC algorithms listed in configuration are accepted, so tokens
    signed with "none" or an asymmetric algorithm are rejected.
*/
package auth
