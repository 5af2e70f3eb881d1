package main

import (
	"context"
	"errors"
	"os"
	"time"

	"savvy/internal/amqp"
	"savvy/internal/cli"
	"savvy/internal/config"
	"savvy/internal/log"
	"savvy/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting savvy-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	if err := run(cfg, logger); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	ledger, err := cli.OpenLedger(ctx, cfg, logger.WithComponent(log.ComponentSheets))
	if err != nil {
		return err
	}

	syncWorker := worker.NewSyncWorker(ledger, logger.Slog())

	// A sheet that cannot be prepared now is retried per event; the worker
	// keeps consuming.
	prepareCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := syncWorker.Prepare(prepareCtx); err != nil {
		logger.Error("Failed to prepare ledger headers", "error", err)
	}
	cancel()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(log.ComponentAMQP).Slog())
	if err != nil {
		return err
	}
	defer amqpClient.Close()

	logger.Info("Consuming record events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	if err := amqpClient.ConsumeRecordEvents(ctx, syncWorker.HandleRecordEvent); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Shutdown signal received")
	return nil
}
