package proxy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"mercator-hq/aegis/pkg/proxy/types"
	"mercator-hq/aegis/pkg/routing"
	"mercator-hq/aegis/pkg/security/auth"
	"mercator-hq/aegis/pkg/telemetry/logging"
)

// seenRequest is what a downstream test server observed.
type seenRequest struct {
	Path   string
	Query  string
	Header http.Header
}

// downstream is an httptest server that records the last request.
type downstream struct {
	*httptest.Server
	mu    sync.Mutex
	last  *seenRequest
	calls int
}

func newDownstream(t *testing.T, handler http.HandlerFunc) *downstream {
	t.Helper()
	d := &downstream{}
	d.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d.mu.Lock()
		d.calls++
		d.last = &seenRequest{Path: r.URL.Path, Query: r.URL.RawQuery, Header: r.Header.Clone()}
		d.mu.Unlock()
		if handler != nil {
			handler(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	t.Cleanup(d.Close)
	return d
}

func (d *downstream) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *downstream) Last() *seenRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

func testRule(t *testing.T, target string) *routing.Rule {
	t.Helper()
	u, err := url.Parse(target)
	if err != nil {
		t.Fatalf("parse target: %v", err)
	}
	return &routing.Rule{
		Prefix:  "/api/v1/identity",
		Service: "identity",
		Target:  u,
		Auth:    auth.ModeOptional,
		Timeout: 2 * time.Second,
	}
}

// outcomes collects completion callbacks.
type outcomes struct {
	mu   sync.Mutex
	list []Outcome
}

func (o *outcomes) done(out Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.list = append(o.list, out)
}

func (o *outcomes) All() []Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Outcome(nil), o.list...)
}

func TestForwarder_RewritesPath(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		path      string
		query     string
		wantPath  string
		wantQuery string
	}{
		{"nested path", "", "/api/v1/identity/users/42", "", "/users/42", ""},
		{"exact prefix", "", "/api/v1/identity", "", "/", ""},
		{"target base path", "/svc/", "/api/v1/identity/users", "", "/svc/users", ""},
		{"query preserved", "", "/api/v1/identity/search", "q=alice&page=2", "/search", "q=alice&page=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := newDownstream(t, nil)
			f := NewForwarder()
			rule := testRule(t, ds.URL+tt.target)

			target := tt.path
			if tt.query != "" {
				target += "?" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			rec := httptest.NewRecorder()
			var got outcomes

			f.Forward(rec, req, rule, nil, got.done)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			seen := ds.Last()
			if seen.Path != tt.wantPath {
				t.Errorf("downstream path = %q, want %q", seen.Path, tt.wantPath)
			}
			if seen.Query != tt.wantQuery {
				t.Errorf("downstream query = %q, want %q", seen.Query, tt.wantQuery)
			}
			if n := len(got.All()); n != 1 {
				t.Errorf("done called %d times, want 1", n)
			}
		})
	}
}

func TestForwarder_IdentityHeaders(t *testing.T) {
	ds := newDownstream(t, nil)
	f := NewForwarder()
	rule := testRule(t, ds.URL)

	t.Run("authenticated caller", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/identity/me", nil)
		req.Header.Set(HeaderUserID, "did:example:mallory")
		req = req.WithContext(logging.WithRequestID(req.Context(), "req_1_abc"))

		id := &auth.Identity{Subject: "did:example:alice", TenantID: "tenant-1"}
		f.Forward(httptest.NewRecorder(), req, rule, id, nil)

		h := ds.Last().Header
		if got := h.Get(HeaderUserID); got != "did:example:alice" {
			t.Errorf("X-User-ID = %q, want did:example:alice", got)
		}
		if got := h.Get(HeaderTenantID); got != "tenant-1" {
			t.Errorf("X-Tenant-ID = %q, want tenant-1", got)
		}
		if got := h.Get(HeaderRequestID); got != "req_1_abc" {
			t.Errorf("X-Request-ID = %q, want req_1_abc", got)
		}
		if h.Get("X-Forwarded-For") == "" {
			t.Error("X-Forwarded-For not set")
		}
	})

	t.Run("anonymous caller cannot spoof", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/identity/me", nil)
		req.Header.Set(HeaderUserID, "did:example:mallory")
		req.Header.Set(HeaderTenantID, "tenant-evil")

		f.Forward(httptest.NewRecorder(), req, rule, nil, nil)

		h := ds.Last().Header
		if got := h.Get(HeaderUserID); got != "" {
			t.Errorf("X-User-ID = %q, want empty", got)
		}
		if got := h.Get(HeaderTenantID); got != "" {
			t.Errorf("X-Tenant-ID = %q, want empty", got)
		}
	})
}

func TestForwarder_InjectsTraceContext(t *testing.T) {
	ds := newDownstream(t, nil)
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	f := NewForwarder(
		WithTracerProvider(tp),
		WithPropagator(propagation.TraceContext{}),
	)
	rule := testRule(t, ds.URL)

	ctx, parent := tp.Tracer("test").Start(context.Background(), "gateway GET")
	defer parent.End()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/identity/me", nil).WithContext(ctx)
	req.Header.Set("traceparent", "00-ffffffffffffffffffffffffffffffff-ffffffffffffffff-01")

	f.Forward(httptest.NewRecorder(), req, rule, nil, nil)

	got := ds.Last().Header.Get("traceparent")
	wantTrace := parent.SpanContext().TraceID().String()
	if !strings.HasPrefix(got, "00-"+wantTrace+"-") {
		t.Errorf("traceparent = %q, want trace id %s", got, wantTrace)
	}
	if strings.Contains(got, parent.SpanContext().SpanID().String()) {
		t.Error("traceparent should carry the client span, not the parent span")
	}
}

func TestForwarder_DownstreamStatus(t *testing.T) {
	ds := newDownstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(HeaderRequestID, "downstream-id")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream broke")
	})
	f := NewForwarder()
	var got outcomes

	rec := httptest.NewRecorder()
	f.Forward(rec, httptest.NewRequest(http.MethodPost, "/api/v1/identity/x", strings.NewReader("{}")), testRule(t, ds.URL), nil, got.done)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	if body := rec.Body.String(); body != "upstream broke" {
		t.Errorf("body = %q, want downstream body", body)
	}
	if h := rec.Header().Get(HeaderRequestID); h != "" {
		t.Errorf("downstream X-Request-ID leaked: %q", h)
	}

	list := got.All()
	if len(list) != 1 {
		t.Fatalf("done called %d times, want 1", len(list))
	}
	if list[0].Status != http.StatusBadGateway || !list[0].Failed() {
		t.Errorf("outcome = %+v, want failed 502", list[0])
	}
}

func TestForwarder_TransportError(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	target := dead.URL
	dead.Close()

	f := NewForwarder()
	var got outcomes
	rec := httptest.NewRecorder()

	f.Forward(rec, httptest.NewRequest(http.MethodGet, "/api/v1/identity/me", nil), testRule(t, target), nil, got.done)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body types.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Message != "identity service is unavailable" {
		t.Errorf("message = %q", body.Message)
	}

	list := got.All()
	if len(list) != 1 {
		t.Fatalf("done called %d times, want 1", len(list))
	}
	if list[0].Err == nil || !list[0].Failed() {
		t.Errorf("outcome = %+v, want transport failure", list[0])
	}
}

func TestForwarder_Timeout(t *testing.T) {
	ds := newDownstream(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	f := NewForwarder()
	rule := testRule(t, ds.URL)
	rule.Timeout = 50 * time.Millisecond
	var got outcomes
	rec := httptest.NewRecorder()

	f.Forward(rec, httptest.NewRequest(http.MethodGet, "/api/v1/identity/slow", nil), rule, nil, got.done)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	list := got.All()
	if len(list) != 1 || !list[0].Failed() {
		t.Errorf("outcomes = %+v, want one failure", list)
	}
}

func TestForwarder_ClientAbandons(t *testing.T) {
	entered := make(chan struct{})
	ds := newDownstream(t, func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-r.Context().Done()
	})
	f := NewForwarder()
	var got outcomes

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/identity/slow", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		f.Forward(rec, req, testRule(t, ds.URL), nil, got.done)
	}()

	<-entered
	cancel()
	<-finished

	list := got.All()
	if len(list) != 1 {
		t.Fatalf("done called %d times, want 1", len(list))
	}
	if !list[0].Abandoned {
		t.Errorf("outcome = %+v, want abandoned", list[0])
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want nothing written", rec.Body.String())
	}
}

func TestJoinPath(t *testing.T) {
	tests := []struct {
		base, rest, want string
	}{
		{"", "/users", "/users"},
		{"/", "/users", "/users"},
		{"/svc", "/", "/svc"},
		{"/svc/", "/users", "/svc/users"},
		{"/svc", "users", "/svc/users"},
	}
	for _, tt := range tests {
		if got := joinPath(tt.base, tt.rest); got != tt.want {
			t.Errorf("joinPath(%q, %q) = %q, want %q", tt.base, tt.rest, got, tt.want)
		}
	}
}
