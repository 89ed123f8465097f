package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scheme is the Authorization header scheme a credential was presented with.
type Scheme string

const (
	// SchemeBearer is a user session token.
	SchemeBearer Scheme = "Bearer"

	// SchemeService is a service-to-service token. It is signed with the
	// same secret as user tokens.
	SchemeService Scheme = "Service"
)

// Mode is the authentication requirement of a route.
type Mode string

const (
	// ModeNone never inspects the Authorization header.
	ModeNone Mode = "none"

	// ModeOptional attaches an identity when a valid token is present and
	// otherwise proceeds anonymously.
	ModeOptional Mode = "optional"

	// ModeMandatory rejects requests without a valid token.
	ModeMandatory Mode = "mandatory"
)

// ParseMode converts a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeNone, ModeOptional, ModeMandatory:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown auth mode %q", s)
	}
}

// Default claim values applied when a token omits them.
const (
	DefaultRole = "user"
	DefaultTier = "standard"
)

// Identity is the verified caller of a request. It is immutable once
// attached to a request context.
type Identity struct {
	Subject     string
	TenantID    string
	Email       string
	Roles       []string
	Tier        string
	Permissions []string
	Scheme      Scheme
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// HasAnyRole reports whether the identity holds at least one of roles.
// An empty roles list is always satisfied.
func (id *Identity) HasAnyRole(roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, want := range roles {
		for _, have := range id.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Claims is the JWT payload accepted by the gateway.
type Claims struct {
	TenantID    string   `json:"tenantId"`
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Tier        string   `json:"tier,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}
