package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRecoveryMiddleware(t *testing.T) {
	t.Run("recovers from panic", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("test panic")
		})

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()

		RecoveryMiddleware(handler).ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status code = %v, want %v", w.Code, http.StatusInternalServerError)
		}

		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON body: %v", err)
		}
		if body["error"] != "Internal Server Error" {
			t.Errorf("error = %q", body["error"])
		}
		if body["message"] == "test panic" {
			t.Error("panic value leaked to client")
		}
	})

	t.Run("passes through normal requests", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
		})

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()

		RecoveryMiddleware(handler).ServeHTTP(w, req)

		if w.Code != http.StatusOK || w.Body.String() != "OK" {
			t.Errorf("got %d %q", w.Code, w.Body.String())
		}
	})

	t.Run("re-panics abort handler", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(http.ErrAbortHandler)
		})

		defer func() {
			if r := recover(); r != http.ErrAbortHandler {
				t.Errorf("expected ErrAbortHandler to propagate, got %v", r)
			}
		}()

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		RecoveryMiddleware(handler).ServeHTTP(httptest.NewRecorder(), req)
	})
}
