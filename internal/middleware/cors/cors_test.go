package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func handler(config Config) http.Handler {
	return New(config).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
}

func TestPreflightAllowedOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/transactions/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "PUT")
	req.Header.Set("Access-Control-Request-Headers", "content-type,x-custom")
	rec := httptest.NewRecorder()

	handler(DefaultConfig()).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	want := map[string]string{
		"Access-Control-Allow-Origin":      "http://localhost:3000",
		"Access-Control-Allow-Credentials": "true",
		"Access-Control-Allow-Methods":     "PUT",
		"Access-Control-Allow-Headers":     "content-type,x-custom",
		"Access-Control-Max-Age":           "600",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestPreflightDisallowedOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/transactions/", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()

	handler(DefaultConfig()).ServeHTTP(rec, req)

	if rec.Code == http.StatusTeapot {
		t.Fatal("preflight must not reach the handler")
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("disallowed origin must not be echoed")
	}
	if rec.Header().Get("Vary") == "" {
		t.Error("preflight responses must vary on Origin")
	}
}

func TestSimpleRequests(t *testing.T) {
	tests := []struct {
		name       string
		origin     string
		wantOrigin string
	}{
		{"allowed origin", "http://localhost:3000", "http://localhost:3000"},
		{"other origin", "http://evil.example", ""},
		{"no origin", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/summary/", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			handler(DefaultConfig()).ServeHTTP(rec, req)

			if rec.Code != http.StatusTeapot {
				t.Fatalf("request should reach the handler, got %d", rec.Code)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
		})
	}
}

func TestWildcardOrigins(t *testing.T) {
	tests := []struct {
		name            string
		credentials     bool
		wantOrigin      string
		wantCredentials string
	}{
		{"without credentials", false, "*", ""},
		{"with credentials echoes origin", true, "http://anything.example", "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler(Config{AllowedOrigins: []string{"*"}, AllowCredentials: tt.credentials})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Origin", "http://anything.example")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != tt.wantCredentials {
				t.Errorf("Allow-Credentials = %q, want %q", got, tt.wantCredentials)
			}
		})
	}
}
