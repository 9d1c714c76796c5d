package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// HeaderRequestID carries the request ID in and out of the service.
	HeaderRequestID = "X-Request-ID"

	maxInboundIDLength = 128
)

// Middleware assigns every request an ID and keeps request counters.
type Middleware struct {
	metrics *Metrics
}

// Metrics tracks request metrics
type Metrics struct {
	TotalRequests       int64
	InFlight            int64
	AverageResponseTime int64 // in microseconds, exponentially weighted
}

// NewMiddleware creates a new trace middleware
func NewMiddleware() *Middleware {
	return &Middleware{metrics: &Metrics{}}
}

// Middleware returns HTTP middleware for request tracing. A well-formed
// inbound X-Request-ID is reused; otherwise a new one is generated. The ID is
// echoed on the response.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(HeaderRequestID)
		if !validInboundID(requestID) {
			requestID = GenerateRequestID()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)

		atomic.AddInt64(&m.metrics.TotalRequests, 1)
		atomic.AddInt64(&m.metrics.InFlight, 1)
		defer func() {
			atomic.AddInt64(&m.metrics.InFlight, -1)
			m.observe(time.Since(start))
		}()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) observe(d time.Duration) {
	sample := d.Microseconds()
	for {
		old := atomic.LoadInt64(&m.metrics.AverageResponseTime)
		next := sample
		if old != 0 {
			next = old + (sample-old)/8
		}
		if atomic.CompareAndSwapInt64(&m.metrics.AverageResponseTime, old, next) {
			return
		}
	}
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	return uuid.NewString()
}

func validInboundID(id string) bool {
	if id == "" || len(id) > maxInboundIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if c < 0x21 || c > 0x7e {
			return false
		}
	}
	return true
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// RequestIDFromRequest is GetRequestID for an *http.Request.
func RequestIDFromRequest(r *http.Request) string {
	return GetRequestID(r.Context())
}

// GetMetrics returns current metrics
func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:       atomic.LoadInt64(&m.metrics.TotalRequests),
		InFlight:            atomic.LoadInt64(&m.metrics.InFlight),
		AverageResponseTime: atomic.LoadInt64(&m.metrics.AverageResponseTime),
	}
}
