package routing

import (
	"net/url"
	"strings"
	"time"

	"mercator-hq/aegis/pkg/security/auth"
)

// Rule maps a path prefix to one downstream service.
//
// Rules are built once by NewTable and never modified afterwards, so they
// can be shared between goroutines without locking.
type Rule struct {
	// Prefix is the public path prefix, e.g. "/api/v1/identity".
	Prefix string

	// Service is the downstream service name. It is also the circuit
	// breaker key.
	Service string

	// Target is the downstream base URL. Its path is joined with the
	// remainder of the request path.
	Target *url.URL

	// Auth is the authentication requirement for the route.
	Auth auth.Mode

	// Roles, when not empty, requires the caller to hold at least one of
	// them.
	Roles []string

	// Timeout bounds the downstream call.
	Timeout time.Duration
}

// Matches reports whether path falls under the rule prefix. Only whole path
// segments match: "/api/v1/auth" matches "/api/v1/auth/login" but not
// "/api/v1/authority".
func (r *Rule) Matches(path string) bool {
	if !strings.HasPrefix(path, r.Prefix) {
		return false
	}
	return len(path) == len(r.Prefix) || path[len(r.Prefix)] == '/'
}

// StripPrefix returns path without the rule prefix. The result always starts
// with "/".
func (r *Rule) StripPrefix(path string) string {
	rest := strings.TrimPrefix(path, r.Prefix)
	if rest == "" {
		return "/"
	}
	return rest
}

// RequiresRole reports whether the rule restricts callers by role.
func (r *Rule) RequiresRole() bool {
	return len(r.Roles) > 0
}

// Stats is a point-in-time view of route matching counters.
type Stats struct {
	// TotalLookups is the number of Match calls.
	TotalLookups int64 `json:"total_lookups"`

	// MatchesPerService counts successful lookups per service.
	MatchesPerService map[string]int64 `json:"matches_per_service"`

	// NotFound counts lookups under the proxy prefix with no rule.
	NotFound int64 `json:"not_found"`

	// LastResetTime is when counting started.
	LastResetTime time.Time `json:"last_reset_time"`
}
