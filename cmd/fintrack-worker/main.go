package main

import (
	"context"
	"errors"
	"os"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	applog "fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting fintrack-worker", applog.FieldOperation, applog.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the mirror worker")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	closers := map[string]func() error{}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid mirror configuration", applog.FieldError, err)
		os.Exit(1)
	}
	mirror, err := backend.NewFactory(logger.Logger).CreateMirror(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize ledger mirror", applog.FieldError, err, "backend", backendCfg.Type)
		os.Exit(1)
	}
	if mirror.Cleanup != nil {
		closers["mirror"] = mirror.Cleanup
	}

	var source worker.TransactionLister
	if cfg.ReconcileOnStartup {
		repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
		closers["sqlite"] = repo.Close
		source = repo
	}

	mirrorWorker := worker.NewMirrorWorker(mirror.Mirror, source, logger.Logger)

	// Catch up on rows written while the worker was down.
	if cfg.ReconcileOnStartup {
		n, err := mirrorWorker.Reconcile(ctx)
		if err != nil {
			logger.Error("Startup reconcile failed", applog.FieldError, err, "mirrored", n)
		} else {
			logger.Info("Startup reconcile completed", "mirrored", n)
		}
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
		logger.WithComponent(applog.ComponentAMQP).Logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		cli.CloseAll(logger.Logger, closers)
		os.Exit(1)
	}
	closers["amqp"] = client.Close

	logger.Info("Consuming transaction events", "queue", cfg.AMQPQueue)
	err = client.ConsumeTransactionEvents(ctx, mirrorWorker.HandleEvent)
	cli.CloseAll(logger.Logger, closers)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		stop()
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}
