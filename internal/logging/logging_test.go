package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSetup(t *testing.T) {
	// Both modes should install a default logger without panicking.
	Setup(true)
	Setup(false)
}

func TestRequestLoggerPassesThrough(t *testing.T) {
	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/visits", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
}

func TestRequestLoggerSkipsHealth(t *testing.T) {
	called := false
	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if !called {
		t.Error("handler was not called for /health")
	}
}
