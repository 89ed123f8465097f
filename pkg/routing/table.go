package routing

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"mercator-hq/aegis/pkg/config"
	"mercator-hq/aegis/pkg/security/auth"
)

// Table resolves request paths to routing rules by longest prefix.
//
// A Table is immutable after construction and safe for concurrent use.
type Table struct {
	proxyPrefix string
	rules       []*Rule
	stats       *AtomicStats
}

// NewTable builds a table from configuration. Routes without a timeout use
// defaultTimeout. The configuration is expected to have passed
// config.Validate, but malformed entries still return an error.
func NewTable(cfg config.RoutingConfig, defaultTimeout time.Duration) (*Table, error) {
	t := &Table{
		proxyPrefix: strings.TrimSuffix(cfg.ProxyPrefix, "/"),
		rules:       make([]*Rule, 0, len(cfg.Routes)),
		stats:       NewAtomicStats(),
	}

	seen := make(map[string]bool, len(cfg.Routes))
	for i, rc := range cfg.Routes {
		if seen[rc.Prefix] {
			return nil, fmt.Errorf("route %d: duplicate prefix %q", i, rc.Prefix)
		}
		seen[rc.Prefix] = true

		target, err := url.Parse(rc.Target)
		if err != nil || target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("route %d: invalid target %q", i, rc.Target)
		}

		mode, err := auth.ParseMode(rc.Auth)
		if err != nil {
			return nil, fmt.Errorf("route %d: %w", i, err)
		}

		timeout := rc.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}

		t.rules = append(t.rules, &Rule{
			Prefix:  rc.Prefix,
			Service: rc.Service,
			Target:  target,
			Auth:    mode,
			Roles:   append([]string(nil), rc.Roles...),
			Timeout: timeout,
		})
	}

	// Longest prefix first so the first match wins.
	sort.SliceStable(t.rules, func(i, j int) bool {
		return len(t.rules[i].Prefix) > len(t.rules[j].Prefix)
	})

	return t, nil
}

// Proxied reports whether path is under the proxy prefix. Only proxied
// paths go through circuit admission and routing.
func (t *Table) Proxied(path string) bool {
	if t.proxyPrefix == "" {
		return true
	}
	if !strings.HasPrefix(path, t.proxyPrefix) {
		return false
	}
	return len(path) == len(t.proxyPrefix) || path[len(t.proxyPrefix)] == '/'
}

// Match returns the rule with the longest prefix matching path. It returns
// an error wrapping ErrRouteNotFound when nothing matches.
func (t *Table) Match(path string) (*Rule, error) {
	t.stats.IncrementLookup()

	for _, r := range t.rules {
		if r.Matches(path) {
			t.stats.IncrementService(r.Service)
			return r, nil
		}
	}

	t.stats.IncrementNotFound()
	return nil, &RouteNotFoundError{Path: path}
}

// Rules returns the rules in match order.
func (t *Table) Rules() []*Rule {
	out := make([]*Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Services returns the distinct service names, sorted.
func (t *Table) Services() []string {
	seen := make(map[string]bool, len(t.rules))
	out := make([]string, 0, len(t.rules))
	for _, r := range t.rules {
		if !seen[r.Service] {
			seen[r.Service] = true
			out = append(out, r.Service)
		}
	}
	sort.Strings(out)
	return out
}

// Stats returns a snapshot of lookup counters.
func (t *Table) Stats() Stats {
	return t.stats.Snapshot()
}
