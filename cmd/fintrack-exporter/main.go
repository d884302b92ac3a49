// Command fintrack-exporter mirrors transaction change events from the
// message broker into a Google Sheet, one row per transaction.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/services"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/worker"
)

const (
	statsInterval      = 5 * time.Minute
	cacheSweepInterval = time.Minute
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))

	if err := run(logger); err != nil {
		logger.Error("fintrack-exporter exited with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("fintrack-exporter stopped gracefully")
}

func run(logger *log.Logger) error {
	cfg, err := cli.LoadAndValidateConfig(logger)
	if err != nil {
		return err
	}
	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required")
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	sheet, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		return err
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	processor := services.NewExportProcessor(client, sheet, services.DefaultExportProcessorConfig(), logger)

	logger.Info("Starting fintrack-exporter",
		log.FieldOperation, log.OpStartup,
		"queue", cfg.AMQPQueue,
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)
	return cli.Run(ctx, logger,
		cli.Task{Name: "exporter", Run: worker.NewExporter(processor, sheet, statsInterval, logger).Run},
		cli.Task{Name: "cache-janitor", Run: cache.NewJanitor(cacheSweepInterval, logger, sheet.RowCache()).Run},
	)
}
