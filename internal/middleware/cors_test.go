package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func corsRequest(method, origin string) *http.Request {
	r := httptest.NewRequest(method, "/api/tickets", nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	return r
}

func TestCORS_AllowAllEchoesOrigin(t *testing.T) {
	c := NewCORSMiddleware()
	reached := false
	handler := c.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, corsRequest(http.MethodGet, "http://console.local"))

	if !reached {
		t.Fatal("request did not reach the handler")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://console.local" {
		t.Errorf("allow-origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Expose-Headers"); got != RequestIDHeader {
		t.Errorf("expose-headers = %q, want %q", got, RequestIDHeader)
	}
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	c := NewCORSMiddleware()
	reached := false
	handler := c.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	r := corsRequest(http.MethodOptions, "http://console.local")
	r.Header.Set("Access-Control-Request-Method", http.MethodPut)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if reached {
		t.Error("preflight must not reach the handler")
	}
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != allowedMethods {
		t.Errorf("allow-methods = %q", got)
	}
}

func TestCORS_DisallowedOriginGetsNoHeaders(t *testing.T) {
	c := NewCORSMiddleware("http://console.local")
	handler := c.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, corsRequest(http.MethodGet, "http://evil.example"))

	if w.Code != http.StatusOK {
		t.Errorf("request itself must still be served, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow-origin %q for disallowed origin", got)
	}
}

func TestCORS_ConfiguredOriginMatch(t *testing.T) {
	c := NewCORSMiddleware("http://console.local")
	handler := c.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, corsRequest(http.MethodGet, "http://CONSOLE.local"))

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://CONSOLE.local" {
		t.Errorf("allow-origin = %q, want case-insensitive match", got)
	}
}
