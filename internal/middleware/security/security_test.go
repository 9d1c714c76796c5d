package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractClientIP(t *testing.T) {
	d := NewDetector(nil)

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"direct public peer ignores headers", "203.0.113.9:5555", "1.2.3.4", "", "203.0.113.9"},
		{"trusted proxy uses first forwarded hop", "10.0.0.2:80", "198.51.100.7, 10.0.0.1", "", "198.51.100.7"},
		{"trusted proxy falls back to X-Real-IP", "127.0.0.1:80", "garbage", "198.51.100.8", "198.51.100.8"},
		{"unparseable remote addr", "pipe", "", "", "pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector(nil)

	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{"normal api call", http.MethodGet, "/transactions/?skip=0&limit=10", "Mozilla/5.0", false},
		{"curl is fine", http.MethodPost, "/users/", "curl/8.0", false},
		{"path traversal", http.MethodGet, "/static/../../etc/passwd", "", true},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			r.Header.Set("User-Agent", tt.agent)
			if got := d.DetectSuspiciousRequest(r); got != tt.want {
				t.Errorf("DetectSuspiciousRequest() = %v, want %v", got, tt.want)
			}
		})
	}
	if d.GetMetrics().SuspiciousRequests != 3 {
		t.Errorf("SuspiciousRequests = %d, want 3", d.GetMetrics().SuspiciousRequests)
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/summary/", nil))
	for name, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
	} {
		if got := rec.Header().Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent over plain HTTP")
	}

	tlsReq := httptest.NewRequest(http.MethodGet, "/summary/", nil)
	tlsReq.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, tlsReq)
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Error("HSTS expected over TLS")
	}
}
