package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSecurityHeaders_NoStoreOnCredentialRoutes(t *testing.T) {
	r := newEngine(SecurityHeaders(SecurityOptions{NoStorePrefixes: []string{"/api/v1/accounts", "/api/v1/me", ""}}))
	r.POST("/api/v1/accounts/link", statusOK)
	r.GET("/api/v1/me/token-status", statusOK)
	r.GET("/api/v1/messages/scheduled", statusOK)

	for _, path := range []string{"/api/v1/accounts/link", "/api/v1/me/token-status"} {
		method := http.MethodGet
		if path == "/api/v1/accounts/link" {
			method = http.MethodPost
		}
		w := serve(r, method, path, nil, nil)
		if w.Header().Get("Cache-Control") != "no-store" || w.Header().Get("Pragma") != "no-cache" {
			t.Fatalf("%s: cache headers %v", path, w.Header())
		}
	}

	w := serve(r, http.MethodGet, "/api/v1/messages/scheduled", nil, nil)
	if w.Header().Get("Cache-Control") != "" {
		t.Fatalf("listing must stay cacheable for ETag revalidation, got %q", w.Header().Get("Cache-Control"))
	}
	for k, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	} {
		if got := w.Header().Get(k); got != want {
			t.Fatalf("%s=%q want %q", k, got, want)
		}
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS must be opt-in")
	}
}

func TestSecurityHeaders_HSTSOnlyOverHTTPS(t *testing.T) {
	r := newEngine(SecurityHeaders(SecurityOptions{EnableHSTS: true, HSTSMaxAge: time.Hour}))
	r.GET("/api/v1/scheduler/status", statusOK)

	if w := serve(r, http.MethodGet, "/api/v1/scheduler/status", nil, nil); w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS over plain http")
	}

	w := serve(r, http.MethodGet, "/api/v1/scheduler/status", nil, map[string]string{"X-Forwarded-Proto": "HTTPS"})
	if got := w.Header().Get("Strict-Transport-Security"); got != "max-age=3600; includeSubDomains" {
		t.Fatalf("forwarded https: %q", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/scheduler/status", nil)
	req.TLS = &tls.ConnectionState{}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Fatalf("direct TLS without HSTS")
	}
}

func TestSecurityHeaders_DefaultMaxAge(t *testing.T) {
	r := newEngine(SecurityHeaders(SecurityOptions{EnableHSTS: true}))
	r.GET("/health", statusOK)

	w := serve(r, http.MethodGet, "/health", nil, map[string]string{"X-Forwarded-Proto": "https"})
	if got := w.Header().Get("Strict-Transport-Security"); got != "max-age=15552000; includeSubDomains" {
		t.Fatalf("HSTS=%q", got)
	}
}
