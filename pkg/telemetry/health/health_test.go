package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mercator-hq/aegis/pkg/breaker"
	"mercator-hq/aegis/pkg/config"
	"mercator-hq/aegis/pkg/routing"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestNew(t *testing.T) {
	tests := []struct {
		name            string
		timeout         time.Duration
		expectedTimeout time.Duration
	}{
		{"default timeout", 0, 5 * time.Second},
		{"custom timeout", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(tt.timeout)
			if checker.checkTimeout != tt.expectedTimeout {
				t.Errorf("expected timeout %v, got %v", tt.expectedTimeout, checker.checkTimeout)
			}
			if len(checker.ListChecks()) != 0 {
				t.Errorf("expected no checks, got %v", checker.ListChecks())
			}
		})
	}
}

func TestChecker_CheckReadiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus string
		wantFailed []string
	}{
		{
			name:       "no checks",
			checks:     nil,
			wantStatus: StatusReady,
		},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"ratelimit_store": func(context.Context) error { return nil },
				"secrets":         func(context.Context) error { return nil },
			},
			wantStatus: StatusReady,
		},
		{
			name: "one failing",
			checks: map[string]CheckFunc{
				"ratelimit_store": func(context.Context) error { return errors.New("dial tcp: connection refused") },
				"secrets":         func(context.Context) error { return nil },
			},
			wantStatus: StatusDegraded,
			wantFailed: []string{"ratelimit_store"},
		},
		{
			name: "check ignores its context",
			checks: map[string]CheckFunc{
				"slow": func(context.Context) error {
					time.Sleep(500 * time.Millisecond)
					return nil
				},
			},
			wantStatus: StatusDegraded,
			wantFailed: []string{"slow"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(50 * time.Millisecond)
			for name, check := range tt.checks {
				checker.RegisterCheck(name, check)
			}

			report := checker.CheckReadiness(context.Background())

			if report.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", report.Status, tt.wantStatus)
			}
			if len(report.Checks) != len(tt.checks) {
				t.Errorf("got %d results, want %d", len(report.Checks), len(tt.checks))
			}
			for _, name := range tt.wantFailed {
				if report.Checks[name].Status != StatusUnhealthy {
					t.Errorf("check %q = %+v, want unhealthy", name, report.Checks[name])
				}
			}
		})
	}
}

func TestChecker_RegisterCheckReplaces(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("store", func(context.Context) error { return errors.New("down") })
	checker.RegisterCheck("store", func(context.Context) error { return nil })

	if report := checker.CheckReadiness(context.Background()); !report.Ready() {
		t.Errorf("report = %+v, want ready", report)
	}
}

func TestHandlers_Health(t *testing.T) {
	h := NewHandlers(New(time.Second), NewVersionInfo("1.2.3", "abc123", "2025-11-20"))

	rec := httptest.NewRecorder()
	h.Health().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body Summary
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != StatusOK || body.Service != ServiceName || body.Version != "1.2.3" {
		t.Errorf("body = %+v", body)
	}
}

func TestHandlers_Ready(t *testing.T) {
	healthy := true
	checker := New(time.Second)
	checker.RegisterCheck("ratelimit_store", PingCheck(pingFunc(func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("redis unreachable")
	})))
	h := NewHandlers(checker, VersionInfo{})

	rec := httptest.NewRecorder()
	h.Ready().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthy: status = %d, want 200", rec.Code)
	}

	healthy = false
	rec = httptest.NewRecorder()
	h.Ready().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy: status = %d, want 503", rec.Code)
	}

	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Checks["ratelimit_store"].Message != "redis unreachable" {
		t.Errorf("checks = %+v", report.Checks)
	}
}

func TestHandlers_Detailed(t *testing.T) {
	table, err := routing.NewTable(config.RoutingConfig{
		ProxyPrefix: "/api/v1",
		Routes: []config.RouteConfig{
			{Prefix: "/api/v1/identity", Service: "identity", Target: "http://identity:3001", Auth: "optional"},
		},
	}, time.Second)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	reg := breaker.NewRegistry(breaker.Settings{ErrorThresholdPercent: 50, ResetTimeout: time.Minute, SampleSize: 2}, table.Services())

	checker := New(time.Second)
	checker.RegisterDetail("circuits", CircuitDetail(reg))
	checker.RegisterDetail("routing", RoutingDetail(table))
	h := NewHandlers(checker, NewVersionInfo("1.0.0", "", ""))

	get := func() Detailed {
		t.Helper()
		rec := httptest.NewRecorder()
		h.Detailed().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var body Detailed
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return body
	}

	if body := get(); body.Status != StatusOK {
		t.Errorf("status = %q, want ok", body.Status)
	}

	reg.RecordOutcome(breaker.Ticket{Service: "identity"}, false)

	body := get()
	if body.Status != StatusDegraded {
		t.Errorf("status = %q, want degraded with an open circuit", body.Status)
	}
	circuits, ok := body.Components["circuits"].([]any)
	if !ok || len(circuits) != 1 {
		t.Fatalf("circuits = %#v", body.Components["circuits"])
	}
	if phase := circuits[0].(map[string]any)["phase"]; phase != "OPEN" {
		t.Errorf("phase = %v, want OPEN", phase)
	}
	if _, ok := body.Components["routing"]; !ok {
		t.Error("routing component missing")
	}
}

func TestHandlers_MethodNotAllowed(t *testing.T) {
	h := NewHandlers(New(time.Second), VersionInfo{})

	rec := httptest.NewRecorder()
	h.Live().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health/live", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHandlers_Head(t *testing.T) {
	h := NewHandlers(New(time.Second), VersionInfo{})

	rec := httptest.NewRecorder()
	h.Live().ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("HEAD wrote a body: %q", rec.Body.String())
	}
}

func TestRateLimitedHandler(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RateLimitedHandler(inner, 2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("first two requests = %v, want 200", codes[:2])
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", codes[2])
	}
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()
	NewHandlers(New(time.Second), VersionInfo{}).Register(mux, 0)

	for _, path := range []string{"/health", "/health/detailed", "/health/ready", "/health/live"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, rec.Code)
		}
	}
}
