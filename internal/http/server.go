package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	applog "fintrack/internal/log"
	"fintrack/internal/middleware/cors"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Options configures the server. Zero values fall back to defaults.
type Options struct {
	Addr               string
	CORS               cors.Config
	RateLimitPerMinute int
	Logger             *applog.Logger
}

type Server struct {
	http.Server
	transactions TransactionService
	users        UserService
	storage      HealthChecker

	logger      *applog.Logger
	corsConfig  cors.Config
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware
	detector    *security.Detector
	startedAt   time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, tx TransactionService, users UserService, storage HealthChecker) *Server {
	base := opts.Logger
	if base == nil {
		base = applog.New(applog.DefaultConfig())
	}
	logger := base.WithComponent(applog.ComponentHTTP)
	if len(opts.CORS.AllowedOrigins) == 0 {
		opts.CORS = cors.DefaultConfig()
	}
	if opts.CORS.Logger == nil {
		opts.CORS.Logger = logger.Logger
	}

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		transactions: tx,
		users:        users,
		storage:      storage,
		logger:       logger,
		corsConfig:   opts.CORS,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		tracer:    trace.NewMiddleware(),
		detector:  security.NewDetector(base.WithComponent(applog.ComponentSecurity).Logger),
		startedAt: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	// Both /transactions and /transactions/ are served.
	for _, prefix := range []string{"/transactions", "/transactions/{$}"} {
		mux.HandleFunc("POST "+prefix, s.handleCreateTransaction)
		mux.HandleFunc("GET "+prefix, s.handleListTransactions)
		mux.HandleFunc("PUT "+prefix, s.handleUpdateTransaction)
	}
	mux.HandleFunc("GET /transactions/{transaction_id}", s.handleGetTransaction)
	mux.HandleFunc("DELETE /transactions/{transaction_id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /summary", s.handleSummary)
	mux.HandleFunc("GET /summary/{$}", s.handleSummary)
	mux.HandleFunc("POST /users", s.handleCreateUser)
	mux.HandleFunc("POST /users/{$}", s.handleCreateUser)

	s.Handler = s.chain(mux)
	return s
}

// chain wraps the router, outermost first: request ID, request-scoped logger,
// access log, security headers, probe detection, CORS, then write rate limit.
func (s *Server) chain(h http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP, ratelimit.WritesOnly, s.onRateLimited)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	origins := cors.New(s.corsConfig)

	h = limited(h)
	h = origins.Handler(h)
	h = s.detector.Middleware(h)
	h = headers.Middleware(h)
	h = applog.AccessLog(h)
	h = applog.RequestIDMiddleware(trace.RequestIDFromRequest)(h)
	h = applog.Middleware(s.logger)(h)
	return s.tracer.Middleware(h)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	writeDetail(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}

// Shutdown gracefully shuts down the server and the limiter's cleanup loop.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.storage != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.storage.Ping(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "storage": "down"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "storage": "up"})
}
