package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/core"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/cors"
	"fintrack/internal/services"
)

const (
	summaryCacheSize       = 16
	cacheCleanupInterval   = 5 * time.Minute
	redisKeyPrefix         = "fintrack:"
	redisSummaryVersionKey = redisKeyPrefix + "summary:version"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	logger.Info("Starting fintrack", applog.FieldOperation, applog.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	closers := map[string]func() error{"sqlite": repo.Close}

	opts := []services.TransactionServiceOption{services.WithLogger(logger.Logger)}
	summaries, versions, closeCache := newSummaryCache(ctx, cfg, logger)
	closers["cache"] = closeCache
	opts = append(opts, services.WithSummaryCache(summaries, versions))

	// Event publishing is optional; the API keeps serving without a broker.
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
			logger.WithComponent(applog.ComponentAMQP).Logger)
		if err != nil {
			logger.Warn("AMQP unavailable, transaction events will not be published", applog.FieldError, err)
		} else {
			opts = append(opts, services.WithPublisher(client))
			closers["amqp"] = client.Close
			logger.Info("AMQP publisher ready", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	txService := services.NewTransactionService(repo, opts...)
	userService := services.NewUserService(repo, cfg.BcryptCost, logger.Logger)

	srv := apphttp.NewServer(apphttp.Options{
		Addr: cfg.Addr(),
		CORS: cors.Config{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowCredentials: true,
			MaxAge:           cors.DefaultConfig().MaxAge,
		},
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	}, txService, userService, repo)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	err := g.Wait()
	txService.Wait()
	cli.CloseAll(logger.Logger, closers)
	if err != nil {
		logger.Error("Server stopped with error", applog.FieldError, err)
		stop()
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}

// newSummaryCache uses Redis when REDIS_ADDR is set and reachable, so several
// API processes share one summary; otherwise an in-process LRU.
func newSummaryCache(ctx context.Context, cfg *config.Config, logger *applog.Logger) (cache.Cache[core.Summary], cache.Versioner, func() error) {
	cacheLogger := logger.WithComponent(applog.ComponentCache)

	if cfg.RedisAddr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err == nil {
			cacheLogger.Info("Summary cache backed by Redis", "addr", cfg.RedisAddr, "ttl", cfg.SummaryCacheTTL)
			return cache.NewRedisCache[core.Summary](client, redisKeyPrefix, cfg.SummaryCacheTTL, cacheLogger.Logger),
				cache.NewRedisVersion(client, redisSummaryVersionKey),
				client.Close
		}
		cacheLogger.Warn("Redis unavailable, using in-process summary cache", applog.FieldError, err)
	}

	lru := cache.NewLRUCache[core.Summary](summaryCacheSize, cfg.SummaryCacheTTL)
	manager := cache.NewManager(cacheLogger.Logger)
	manager.Register(lru)
	manager.StartCleanup(cacheCleanupInterval)
	return lru, &cache.LocalVersion{}, func() error {
		manager.Stop()
		return nil
	}
}
