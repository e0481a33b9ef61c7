// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serveWithHeaders(cfg SecurityHeadersConfig, path string) *httptest.ResponseRecorder {
	handler := SecurityHeaders(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestSecurityHeaders_Production(t *testing.T) {
	rr := serveWithHeaders(DefaultSecurityHeadersConfig(false), "/length")

	checks := map[string]string{
		"X-Frame-Options":           "DENY",
		"X-Content-Type-Options":    "nosniff",
		"Referrer-Policy":           "strict-origin-when-cross-origin",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	}
	for header, want := range checks {
		if got := rr.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}

	csp := rr.Header().Get("Content-Security-Policy")
	for _, directive := range []string{"default-src 'none'", "script-src 'self'", "form-action 'self'", "frame-ancestors 'none'"} {
		if !strings.Contains(csp, directive) {
			t.Errorf("CSP %q missing %q", csp, directive)
		}
	}
	if strings.Contains(csp, "unsafe-inline") {
		t.Errorf("CSP should not allow inline code: %q", csp)
	}
}

func TestSecurityHeaders_DevelopmentSkipsHSTS(t *testing.T) {
	rr := serveWithHeaders(DefaultSecurityHeadersConfig(true), "/")

	if got := rr.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("Strict-Transport-Security = %q, want empty in development", got)
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Error("CSP should be set in development")
	}
}

func TestSecurityHeaders_ExcludePaths(t *testing.T) {
	cfg := DefaultSecurityHeadersConfig(false)
	cfg.ExcludePaths = []string{"/health"}

	rr := serveWithHeaders(cfg, "/health/ready")
	if got := rr.Header().Get("Content-Security-Policy"); got != "" {
		t.Errorf("excluded path got CSP %q", got)
	}

	rr = serveWithHeaders(cfg, "/length")
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Error("non-excluded path should get CSP")
	}
}

func TestBuildCSP_Order(t *testing.T) {
	got := buildCSP(map[string]string{
		"zz-custom":   "x",
		"form-action": "'self'",
		"default-src": "'none'",
	})
	want := "default-src 'none'; form-action 'self'; zz-custom x"
	if got != want {
		t.Errorf("buildCSP() = %q, want %q", got, want)
	}
}

func TestBuildPermissionsPolicy_Sorted(t *testing.T) {
	got := buildPermissionsPolicy(map[string]string{"usb": "()", "camera": "()"})
	if got != "camera=(), usb=()" {
		t.Errorf("buildPermissionsPolicy() = %q", got)
	}
}

func TestStaticCache(t *testing.T) {
	tests := []struct {
		maxAge int
		want   string
	}{
		{3600, "public, max-age=3600"},
		{0, "no-cache"},
	}

	for _, tt := range tests {
		handler := StaticCache(tt.maxAge)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
		if got := rr.Header().Get("Cache-Control"); got != tt.want {
			t.Errorf("StaticCache(%d) Cache-Control = %q, want %q", tt.maxAge, got, tt.want)
		}
	}
}
