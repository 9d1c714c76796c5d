// Package cli provides common CLI initialization utilities shared by
// cmd/fintrack and cmd/fintrack-worker.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// SetupLogger initializes structured logging from LOG_LEVEL and LOG_FORMAT.
// The returned logger is also installed as the slog default.
func SetupLogger(component string) *applog.Logger {
	level, err := applog.ParseLevel(os.Getenv("LOG_LEVEL"))
	logger := applog.New(applog.Config{
		Level:     level,
		Format:    os.Getenv("LOG_FORMAT"),
		Component: component,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Falling back to info log level", applog.FieldError, err)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	sqliteRepo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	logger.Info("SQLite repository ready", "path", dbPath)
	return sqliteRepo
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown)
	}()
	return ctx, stop
}

// CloseAll runs each closer and logs, rather than returns, their failures.
func CloseAll(logger *slog.Logger, closers map[string]func() error) {
	for name, closeFn := range closers {
		if closeFn == nil {
			continue
		}
		if err := closeFn(); err != nil {
			logger.Warn("Close failed", "resource", name, applog.FieldError, err)
		}
	}
}
