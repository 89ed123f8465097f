package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// captureLogs redirects the default logger for the duration of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return buf
}

func TestLoggingMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{name: "success", status: http.StatusOK, wantLevel: "INFO"},
		{name: "client error", status: http.StatusUnauthorized, wantLevel: "WARN"},
		{name: "server error", status: http.StatusServiceUnavailable, wantLevel: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogs(t)

			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if GetStartTime(r.Context()).IsZero() {
					t.Error("expected start time in context")
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("body"))
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/identity", nil)
			w := httptest.NewRecorder()
			LoggingMiddleware(RequestIDMiddleware(handler)).ServeHTTP(w, req)

			var completed map[string]any
			for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
				var m map[string]any
				if err := json.Unmarshal([]byte(line), &m); err != nil {
					t.Fatalf("invalid log line %q: %v", line, err)
				}
				if m["msg"] == "request completed" {
					completed = m
				}
			}
			if completed == nil {
				t.Fatalf("no completion log in %s", buf.String())
			}
			if completed["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", completed["level"], tt.wantLevel)
			}
			if completed["status"] != float64(tt.status) {
				t.Errorf("status = %v, want %d", completed["status"], tt.status)
			}
			if completed["bytes"] != float64(4) {
				t.Errorf("bytes = %v, want 4", completed["bytes"])
			}
			if completed["request_id"] != w.Header().Get(RequestIDHeader) {
				t.Errorf("request_id = %v, want %q", completed["request_id"], w.Header().Get(RequestIDHeader))
			}
		})
	}
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	rw.WriteHeader(http.StatusAccepted)
	rw.WriteHeader(http.StatusInternalServerError)

	if rw.statusCode != http.StatusAccepted || rec.Code != http.StatusAccepted {
		t.Errorf("status = %d/%d, want 202", rw.statusCode, rec.Code)
	}
	if rw.Unwrap() != rec {
		t.Error("Unwrap should return the wrapped writer")
	}
}
