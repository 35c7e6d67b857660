package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"khata/internal/amqp"
	"khata/internal/cli"
	apphttp "khata/internal/http"
	"khata/internal/ledger"
	applog "khata/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)

	logger.Info("Starting khata server")

	cfg := cli.LoadAndValidateConfig(logger)

	result := cli.InitStore(context.Background(), logger, cfg)
	store := result.Store
	if result.Cleanup != nil {
		defer result.Cleanup()
	}

	// AMQP is optional: without it, entries still commit locally and only the
	// audit export is skipped.
	var publisher ledger.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without audit export", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - applied entries will not reach the audit register")
	}

	ld := ledger.New(store, publisher)
	history := ledger.NewHistoryResolver(store, store)
	bills := ledger.NewBills(store)

	srv := apphttp.NewServer(":"+cfg.Port, ld, history, bills, store)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting HTTP server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
