// Package cors answers browser cross-origin checks for a fixed origin list.
package cors

import (
	"log/slog"
	"net/http"

	"github.com/rs/cors"
)

var allowedMethods = []string{
	http.MethodDelete,
	http.MethodGet,
	http.MethodHead,
	http.MethodPatch,
	http.MethodPost,
	http.MethodPut,
}

// Config holds CORS configuration
type Config struct {
	AllowedOrigins   []string
	AllowCredentials bool
	MaxAge           int // seconds a preflight result may be cached

	// Logger receives the middleware's decisions at debug level. Optional.
	Logger *slog.Logger
}

// DefaultConfig allows the local frontend dev server with credentials.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		MaxAge:           600,
	}
}

// New builds the CORS handler. Every method and request header is allowed
// for permitted origins. A "*" origin combined with credentials echoes the
// caller's origin, since browsers refuse a literal "*" with credentials.
func New(config Config) *cors.Cors {
	opts := cors.Options{
		AllowedOrigins:   config.AllowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   []string{"*"},
		AllowCredentials: config.AllowCredentials,
		MaxAge:           config.MaxAge,
	}
	if config.AllowCredentials && containsWildcard(config.AllowedOrigins) {
		opts.AllowedOrigins = nil
		opts.AllowOriginFunc = func(string) bool { return true }
	}
	if config.Logger != nil {
		opts.Logger = slog.NewLogLogger(config.Logger.Handler(), slog.LevelDebug)
	}
	return cors.New(opts)
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
