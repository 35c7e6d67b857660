package main

import (
	"context"
	"os"
	"time"

	"khata/internal/amqp"
	"khata/internal/cli"
	applog "khata/internal/log"
	"khata/internal/sheets"
	gsheet "khata/internal/sheets/google"
	"khata/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)

	logger.Info("Starting khata-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	// The audit register is optional; without it messages are consumed and
	// acked without an export, so the queue does not grow unbounded.
	var register sheets.RegisterWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		register = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Audit register disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(register)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	go func() {
		if err := amqpClient.ConsumeEntryApplied(ctx, cfg.ExportBatchSize, exportWorker.HandleEntryApplied); err != nil && err != context.Canceled {
			logger.Error("Message consumption failed", "error", err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
