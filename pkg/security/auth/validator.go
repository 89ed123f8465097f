package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SecretSource supplies the current HMAC signing secret. Implementations
// may rotate the secret at runtime; Secret is called once per validation.
type SecretSource interface {
	Secret() []byte
}

// StaticSecret is a SecretSource that never changes.
type StaticSecret []byte

// Secret returns s.
func (s StaticSecret) Secret() []byte {
	return s
}

// Validator verifies Authorization header values and extracts the caller
// identity. It is safe for concurrent use.
type Validator struct {
	source SecretSource
	parser *jwt.Parser
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*validatorOptions)

type validatorOptions struct {
	now func() time.Time
}

// WithTimeFunc overrides the clock used for expiry checks.
func WithTimeFunc(now func() time.Time) ValidatorOption {
	return func(o *validatorOptions) {
		o.now = now
	}
}

// NewValidator creates a validator that accepts tokens signed with one of
// algorithms (HS256 when empty) using the secret from source.
func NewValidator(source SecretSource, algorithms []string, opts ...ValidatorOption) *Validator {
	if len(algorithms) == 0 {
		algorithms = []string{jwt.SigningMethodHS256.Alg()}
	}

	o := validatorOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return &Validator{
		source: source,
		parser: jwt.NewParser(
			jwt.WithValidMethods(algorithms),
			jwt.WithTimeFunc(o.now),
		),
	}
}

// Validate verifies a raw Authorization header value of the form
// "Bearer <token>" or "Service <token>". Both schemes share the signing
// secret. Errors wrap ErrInvalidToken, ErrExpiredToken or
// ErrMissingRequiredClaim.
func (v *Validator) Validate(header string) (*Identity, error) {
	rawScheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return nil, fmt.Errorf("%w: malformed authorization header", ErrInvalidToken)
	}

	var scheme Scheme
	switch {
	case strings.EqualFold(rawScheme, string(SchemeBearer)):
		scheme = SchemeBearer
	case strings.EqualFold(rawScheme, string(SchemeService)):
		scheme = SchemeService
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidToken, rawScheme)
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	secret := v.source.Secret()
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: no signing secret available", ErrInvalidToken)
	}

	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" || claims.TenantID == "" {
		return nil, ErrMissingRequiredClaim
	}

	return newIdentity(claims, scheme), nil
}

// Authenticate applies mode to header. It returns a nil identity and nil
// error for anonymous requests.
//
//   - ModeNone ignores the header.
//   - ModeOptional proceeds anonymously when the header is absent or fails
//     validation.
//   - ModeMandatory returns ErrMissingCredentials for an absent header and
//     the validation error otherwise.
func (v *Validator) Authenticate(ctx context.Context, header string, mode Mode) (*Identity, error) {
	if mode == ModeNone {
		return nil, nil
	}

	if strings.TrimSpace(header) == "" {
		if mode == ModeMandatory {
			return nil, ErrMissingCredentials
		}
		return nil, nil
	}

	id, err := v.Validate(header)
	if err != nil {
		if mode == ModeMandatory {
			return nil, err
		}
		slog.DebugContext(ctx, "optional authentication failed, continuing anonymously",
			"error", err,
		)
		return nil, nil
	}

	return id, nil
}

func newIdentity(claims *Claims, scheme Scheme) *Identity {
	id := &Identity{
		Subject:     claims.Subject,
		TenantID:    claims.TenantID,
		Email:       claims.Email,
		Roles:       claims.Roles,
		Tier:        claims.Tier,
		Permissions: claims.Permissions,
		Scheme:      scheme,
	}
	if len(id.Roles) == 0 {
		id.Roles = []string{DefaultRole}
	}
	if id.Tier == "" {
		id.Tier = DefaultTier
	}
	if id.Permissions == nil {
		id.Permissions = []string{}
	}
	if claims.IssuedAt != nil {
		id.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id
}
