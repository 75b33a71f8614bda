package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"carteira/internal/amqp"
	"carteira/internal/cli"
	"carteira/internal/sheets"
	gsheet "carteira/internal/sheets/google"
	sheetsmem "carteira/internal/sheets/memory"
	"carteira/internal/worker"
)

func main() {
	logger, cfg := cli.Bootstrap("carteira-worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var exporter sheets.Exporter
	if cfg.SheetsExportEnabled() {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			OAuthClientJSON: cfg.GoogleOAuthClientJSON,
			OAuthClientFile: cfg.GoogleOAuthClientFile,
			OAuthTokenJSON:  cfg.GoogleOAuthTokenJSON,
			OAuthTokenFile:  cfg.GoogleOAuthTokenFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		exporter = client
	} else {
		// Without a spreadsheet the worker still drains the queue so events
		// do not pile up in the broker.
		logger.Info("Google Sheets disabled - mirroring events to memory")
		exporter = sheetsmem.New()
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	mirror := worker.NewMirrorWorker(exporter)

	logger.Info("Consuming transaction events", "queue", cfg.AMQPQueue)
	if err := mirror.Run(ctx, amqpClient); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event consumption failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker shutdown complete")
}
