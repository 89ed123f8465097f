package types

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name        string
		resp        *ErrorResponse
		wantStatus  int
		wantError   string
		wantMessage string
		wantCode    Code
	}{
		{
			name:        "unauthorized",
			resp:        NewUnauthorizedError(CodeMissingCredentials, "Authorization header is required"),
			wantStatus:  http.StatusUnauthorized,
			wantError:   "Unauthorized",
			wantMessage: "Authorization header is required",
			wantCode:    CodeMissingCredentials,
		},
		{
			name:        "forbidden",
			resp:        NewForbiddenError(),
			wantStatus:  http.StatusForbidden,
			wantError:   "Forbidden",
			wantMessage: "Insufficient permissions",
			wantCode:    CodeInsufficientRole,
		},
		{
			name:        "not found",
			resp:        NewNotFoundError(),
			wantStatus:  http.StatusNotFound,
			wantError:   "Not Found",
			wantMessage: "Route not found",
			wantCode:    CodeRouteNotFound,
		},
		{
			name:        "rate limit",
			resp:        NewRateLimitError(),
			wantStatus:  http.StatusTooManyRequests,
			wantError:   "Too Many Requests",
			wantMessage: "Too many requests, please try again later",
			wantCode:    CodeRateLimitExceeded,
		},
		{
			name:        "circuit open",
			resp:        NewCircuitOpenError(),
			wantStatus:  http.StatusServiceUnavailable,
			wantError:   "Service Unavailable",
			wantMessage: "Circuit breaker is OPEN",
			wantCode:    CodeCircuitOpen,
		},
		{
			name:        "downstream unavailable",
			resp:        NewDownstreamUnavailableError("identity"),
			wantStatus:  http.StatusServiceUnavailable,
			wantError:   "Service Unavailable",
			wantMessage: "identity service is unavailable",
			wantCode:    CodeDownstreamUnavailable,
		},
		{
			name:        "internal",
			resp:        NewInternalError(),
			wantStatus:  http.StatusInternalServerError,
			wantError:   "Internal Server Error",
			wantMessage: "An internal error occurred",
			wantCode:    CodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.HTTPStatusCode(); got != tt.wantStatus {
				t.Errorf("status = %d, want %d", got, tt.wantStatus)
			}
			if tt.resp.Error != tt.wantError {
				t.Errorf("error = %q, want %q", tt.resp.Error, tt.wantError)
			}
			if tt.resp.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", tt.resp.Message, tt.wantMessage)
			}
			if tt.resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", tt.resp.Code, tt.wantCode)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	before := time.Now().UTC().Add(-time.Second)

	WriteError(w, NewCircuitOpenError())

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(body) != 3 {
		t.Errorf("expected exactly error, message and timestamp, got %v", body)
	}
	if body["error"] != "Service Unavailable" || body["message"] != "Circuit breaker is OPEN" {
		t.Errorf("unexpected body %v", body)
	}

	ts, err := time.Parse(time.RFC3339, body["timestamp"])
	if err != nil {
		t.Fatalf("timestamp not RFC 3339: %v", err)
	}
	if ts.Before(before) {
		t.Errorf("timestamp %v is older than %v", ts, before)
	}
}

func TestWriteError_KeepsTimestamp(t *testing.T) {
	w := httptest.NewRecorder()
	resp := NewNotFoundError()
	resp.Timestamp = "2025-01-01T00:00:00Z"

	WriteError(w, resp)

	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["timestamp"] != "2025-01-01T00:00:00Z" {
		t.Errorf("timestamp = %q", body["timestamp"])
	}
}

func TestHTTPStatusCode_Default(t *testing.T) {
	if got := (&ErrorResponse{}).HTTPStatusCode(); got != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", got)
	}
}
