package routing

import (
	"errors"
	"sync"
	"testing"
	"time"

	"mercator-hq/aegis/pkg/config"
	"mercator-hq/aegis/pkg/security/auth"
)

func testRoutingConfig() config.RoutingConfig {
	return config.RoutingConfig{
		ProxyPrefix: "/api/v1",
		Routes: []config.RouteConfig{
			{Prefix: "/api/v1/identity", Service: "identity", Target: "http://identity:3001", Auth: "optional"},
			{Prefix: "/api/v1/auth", Service: "auth", Target: "http://auth:3003/base", Auth: "none"},
			{Prefix: "/api/v1/auth/admin", Service: "auth-admin", Target: "http://auth:3003", Auth: "mandatory", Roles: []string{"admin"}},
			{Prefix: "/api/v1/credentials", Service: "credential", Target: "https://credential:3002", Auth: "mandatory", Timeout: 5 * time.Second},
		},
	}
}

func newTestTable(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable(testRoutingConfig(), 30*time.Second)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return table
}

func TestTable_Match(t *testing.T) {
	table := newTestTable(t)

	tests := []struct {
		name        string
		path        string
		wantService string
		wantRest    string
		wantErr     bool
	}{
		{name: "exact prefix", path: "/api/v1/identity", wantService: "identity", wantRest: "/"},
		{name: "nested path", path: "/api/v1/identity/users/42", wantService: "identity", wantRest: "/users/42"},
		{name: "longest prefix wins", path: "/api/v1/auth/admin/keys", wantService: "auth-admin", wantRest: "/keys"},
		{name: "shorter prefix", path: "/api/v1/auth/login", wantService: "auth", wantRest: "/login"},
		{name: "partial segment", path: "/api/v1/authority", wantErr: true},
		{name: "unknown service", path: "/api/v1/blockchain/tx", wantErr: true},
		{name: "outside prefix", path: "/health", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := table.Match(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrRouteNotFound) {
					t.Fatalf("expected ErrRouteNotFound, got %v", err)
				}
				var nf *RouteNotFoundError
				if !errors.As(err, &nf) || nf.Path != tt.path {
					t.Errorf("expected RouteNotFoundError for %q, got %v", tt.path, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rule.Service != tt.wantService {
				t.Errorf("expected service %q, got %q", tt.wantService, rule.Service)
			}
			if got := rule.StripPrefix(tt.path); got != tt.wantRest {
				t.Errorf("expected stripped path %q, got %q", tt.wantRest, got)
			}
		})
	}
}

func TestTable_RuleFields(t *testing.T) {
	table := newTestTable(t)

	rule, err := table.Match("/api/v1/credentials/issue")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rule.Auth != auth.ModeMandatory {
		t.Errorf("expected mandatory auth, got %q", rule.Auth)
	}
	if rule.Timeout != 5*time.Second {
		t.Errorf("expected route timeout 5s, got %v", rule.Timeout)
	}
	if rule.Target.Scheme != "https" || rule.Target.Host != "credential:3002" {
		t.Errorf("unexpected target %v", rule.Target)
	}

	rule, _ = table.Match("/api/v1/identity")
	if rule.Timeout != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %v", rule.Timeout)
	}
	if rule.RequiresRole() {
		t.Error("expected no role requirement")
	}

	rule, _ = table.Match("/api/v1/auth/admin")
	if !rule.RequiresRole() || rule.Roles[0] != "admin" {
		t.Errorf("expected admin role requirement, got %v", rule.Roles)
	}
}

func TestTable_Proxied(t *testing.T) {
	table := newTestTable(t)

	tests := []struct {
		path string
		want bool
	}{
		{"/api/v1", true},
		{"/api/v1/anything", true},
		{"/api/v10/identity", false},
		{"/health", false},
		{"/metrics", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := table.Proxied(tt.path); got != tt.want {
				t.Errorf("Proxied(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestTable_Services(t *testing.T) {
	table := newTestTable(t)

	got := table.Services()
	want := []string{"auth", "auth-admin", "credential", "identity"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
			break
		}
	}

	rules := table.Rules()
	if rules[0].Prefix != "/api/v1/credentials" && rules[0].Prefix != "/api/v1/auth/admin" {
		t.Errorf("expected longest prefix first, got %q", rules[0].Prefix)
	}
}

func TestNewTable_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.RoutingConfig)
	}{
		{
			name: "duplicate prefix",
			mutate: func(c *config.RoutingConfig) {
				c.Routes = append(c.Routes, c.Routes[0])
			},
		},
		{
			name: "relative target",
			mutate: func(c *config.RoutingConfig) {
				c.Routes[0].Target = "identity:3001"
			},
		},
		{
			name: "unknown auth mode",
			mutate: func(c *config.RoutingConfig) {
				c.Routes[0].Auth = "sometimes"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testRoutingConfig()
			tt.mutate(&cfg)
			if _, err := NewTable(cfg, time.Second); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestTable_Stats(t *testing.T) {
	table := newTestTable(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = table.Match("/api/v1/identity/x")
			_, _ = table.Match("/api/v1/missing")
		}()
	}
	wg.Wait()

	stats := table.Stats()
	if stats.TotalLookups != 40 {
		t.Errorf("expected 40 lookups, got %d", stats.TotalLookups)
	}
	if stats.MatchesPerService["identity"] != 20 {
		t.Errorf("expected 20 identity matches, got %d", stats.MatchesPerService["identity"])
	}
	if stats.NotFound != 20 {
		t.Errorf("expected 20 not found, got %d", stats.NotFound)
	}

	table.stats.Reset()
	if table.Stats().TotalLookups != 0 {
		t.Error("expected counters to reset")
	}
}
