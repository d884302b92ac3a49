package worker

import (
	"context"
	"time"

	"fintrack/internal/log"
	"fintrack/internal/services"
)

const stopTimeout = 10 * time.Second

// HeaderWriter prepares the export target before the first event.
type HeaderWriter interface {
	EnsureHeader(ctx context.Context) error
}

// Exporter supervises an ExportProcessor: it writes the sheet header, starts
// consumption and logs the export counters every statsInterval.
type Exporter struct {
	processor     *services.ExportProcessor
	header        HeaderWriter
	statsInterval time.Duration
	logger        *log.Logger
}

// NewExporter wires the processor. header may be nil.
func NewExporter(processor *services.ExportProcessor, header HeaderWriter, statsInterval time.Duration, logger *log.Logger) *Exporter {
	return &Exporter{
		processor:     processor,
		header:        header,
		statsInterval: statsInterval,
		logger:        logger.WithComponent(log.ComponentWorker),
	}
}

// Run returns nil when ctx ends, or the consumer's error if it stops on its
// own.
func (e *Exporter) Run(ctx context.Context) error {
	if e.header != nil {
		// A sheet we cannot prepare now may still accept rows later.
		if err := e.header.EnsureHeader(ctx); err != nil {
			e.logger.ErrorContext(ctx, "Failed to write export header",
				log.FieldOperation, log.OpStartup,
				log.FieldError, err)
		}
	}

	if err := e.processor.Start(ctx); err != nil {
		return err
	}
	done := e.processor.Done()

	ticker := time.NewTicker(e.statsInterval)
	defer ticker.Stop()

	var last services.ExportStats
	for {
		select {
		case <-ctx.Done():
			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			return e.processor.Stop(stopCtx)
		case <-done:
			return e.processor.Err()
		case <-ticker.C:
			if st := e.processor.Stats(); st != last {
				e.logger.InfoContext(ctx, "Export progress",
					log.FieldOperation, log.OpExport,
					"exported", st.Exported,
					"failed", st.Failed)
				last = st
			}
		}
	}
}
