package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiterAllow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 3})
	defer rl.Stop()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("fourth request within the minute should be denied")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatal("other clients have their own allowance")
	}

	// one token returns every 20s at 3 per minute
	now = now.Add(20 * time.Second)
	if !rl.Allow("10.0.0.1") {
		t.Fatal("a refilled token should be usable")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("only one token should have refilled")
	}

	now = now.Add(time.Minute)
	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("full bucket: request %d should be allowed", i+1)
		}
	}

	m := rl.GetMetrics()
	if m.TotalHits != 2 || m.ClientCount != 2 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestLimiterCleanup(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.Allow("a")

	now = now.Add(11 * time.Minute)
	rl.cleanupStaleEntries()
	if rl.GetMetrics().ClientCount != 0 {
		t.Fatal("stale client should be removed")
	}
}

func TestMiddlewareWritesOnly(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()

	h := rl.Middleware(func(*http.Request) string { return "client" }, WritesOnly, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	do := func(method string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/transactions/", nil))
		return rec
	}

	if rec := do(http.MethodPost); rec.Code != http.StatusOK {
		t.Fatalf("first POST = %d", rec.Code)
	}
	rec := do(http.MethodPost)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second POST = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	for i := 0; i < 5; i++ {
		if rec := do(http.MethodGet); rec.Code != http.StatusOK {
			t.Fatalf("GET should not be limited, got %d", rec.Code)
		}
	}
}
