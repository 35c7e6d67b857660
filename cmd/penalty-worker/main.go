package main

import (
	"context"
	"time"

	"khata/internal/amqp"
	"khata/internal/cli"
	"khata/internal/ledger"
	applog "khata/internal/log"
	"khata/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentPenalty)

	logger.Info("Starting penalty-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	result := cli.InitStore(context.Background(), logger, cfg)
	store := result.Store
	if result.Cleanup != nil {
		defer result.Cleanup()
	}

	// Penalty postings are ledger entries like any other, so they flow to the
	// audit register when AMQP is configured.
	var publisher ledger.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without audit export", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}

	ld := ledger.New(store, publisher)
	processor := ledger.NewPenaltyProcessor(store, ld)
	runner := worker.NewPenaltyRunner(processor, cfg.PenaltyInterval)

	logger.Info("Penalty processor configured",
		"interval", cfg.PenaltyInterval,
		"backend", cfg.DataBackend)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	go func() {
		if err := runner.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("Penalty runner failed", "error", err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Penalty-worker stopped gracefully")
}
