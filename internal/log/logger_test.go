package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewJSONCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentHTTP, Output: &buf})

	logger.Info("hello", FieldTxID, 7)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry[FieldComponent] != ComponentHTTP {
		t.Errorf("component = %v, want %v", entry[FieldComponent], ComponentHTTP)
	}
	if entry[FieldTxID] != float64(7) {
		t.Errorf("transaction_id = %v, want 7", entry[FieldTxID])
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if l := FromContext(r.Context()); l == nil || l.Component() != "unknown" {
		t.Fatalf("expected fallback logger, got %+v", l)
	}
}

func TestAccessLogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentHTTP, Output: &buf})

	h := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		AccessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/transactions/9", nil))

	out := buf.String()
	for _, want := range []string{"level=WARN", "status_code=404", "request_id=req-1", "path=/transactions/9"} {
		if !strings.Contains(out, want) {
			t.Errorf("access log %q missing %q", out, want)
		}
	}
}
