package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
)

// EventSource is satisfied by *amqp.Client.
type EventSource interface {
	Consume(ctx context.Context, handler func(context.Context, *amqp.TransactionEvent) error) error
}

// ExportProcessorConfig holds retry settings for the export processor
type ExportProcessorConfig struct {
	// MaxRetries is how many times one event is tried before it is dropped (default: 3)
	MaxRetries int

	// RetryDelay is the pause between attempts (default: 2s)
	RetryDelay time.Duration
}

func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{
		MaxRetries: 3,
		RetryDelay: 2 * time.Second,
	}
}

// ExportStats counts handled events since start.
type ExportStats struct {
	Exported int64 `json:"exported"`
	Failed   int64 `json:"failed"`
}

// ExportProcessor consumes transaction events and mirrors them into a
// sheet.
type ExportProcessor struct {
	source   EventSource
	exporter sheets.TransactionExporter
	config   ExportProcessorConfig
	logger   *log.Logger

	exported atomic.Int64
	failed   atomic.Int64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
	err     error
}

func NewExportProcessor(source EventSource, exporter sheets.TransactionExporter, config ExportProcessorConfig, logger *log.Logger) *ExportProcessor {
	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}
	return &ExportProcessor{
		source:   source,
		exporter: exporter,
		config:   config,
		logger:   logger.WithComponent(log.ComponentExporter),
	}
}

// Start begins consuming. Returns an error if already running.
func (p *ExportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("export processor is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.running = true
	p.cancel = cancel
	p.doneCh = make(chan struct{})
	p.err = nil

	go p.run(runCtx, p.doneCh)

	p.logger.InfoContext(ctx, "Export processor started",
		"max_retries", p.config.MaxRetries,
		"retry_delay", p.config.RetryDelay.String())
	return nil
}

func (p *ExportProcessor) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	err := p.source.Consume(ctx, p.Handle)

	p.mu.Lock()
	p.err = err
	p.running = false
	p.mu.Unlock()

	if err != nil {
		p.logger.ErrorContext(ctx, "Event consumption stopped", log.FieldError, err)
	}
}

// Stop cancels consumption and waits for the in-flight event to finish.
func (p *ExportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.cancel == nil {
		p.mu.Unlock()
		return nil
	}
	cancel, done := p.cancel, p.doneCh
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	select {
	case <-done:
		p.logger.InfoContext(ctx, "Export processor stopped gracefully", "exported", p.exported.Load(), "failed", p.failed.Load())
		return nil
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Export processor stop timed out")
		return ctx.Err()
	}
}

// Done is closed when consumption ends; Err then reports why.
func (p *ExportProcessor) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doneCh
}

func (p *ExportProcessor) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *ExportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ExportProcessor) Stats() ExportStats {
	return ExportStats{Exported: p.exported.Load(), Failed: p.failed.Load()}
}

// Handle applies one event, retrying up to MaxRetries times. An event that
// still fails is counted and dropped so it cannot block the queue; only a
// cancelled context is returned as an error, which requeues the message.
func (p *ExportProcessor) Handle(ctx context.Context, ev *amqp.TransactionEvent) error {
	var err error
	for attempt := 1; attempt <= p.config.MaxRetries; attempt++ {
		if err = p.apply(ctx, ev); err == nil {
			p.exported.Add(1)
			p.logger.DebugContext(ctx, "Exported transaction event",
				log.FieldEventType, ev.Type,
				log.FieldTransactionID, ev.TransactionID)
			return nil
		}

		p.logger.WarnContext(ctx, "Export attempt failed",
			log.FieldEventType, ev.Type,
			log.FieldTransactionID, ev.TransactionID,
			"attempt", attempt,
			log.FieldError, err)

		if attempt == p.config.MaxRetries {
			break
		}
		select {
		case <-time.After(p.config.RetryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p.failed.Add(1)
	p.logger.ErrorContext(ctx, "Export failed permanently after max retries",
		log.FieldEventType, ev.Type,
		log.FieldTransactionID, ev.TransactionID,
		log.FieldUserID, ev.UserID,
		log.FieldOperation, log.OpExport,
		log.FieldError, err)
	return nil
}

func (p *ExportProcessor) apply(ctx context.Context, ev *amqp.TransactionEvent) error {
	switch ev.Type {
	case amqp.EventCreated, amqp.EventUpdated:
		if ev.Transaction == nil {
			return fmt.Errorf("%s event without transaction", ev.Type)
		}
		return p.exporter.UpsertTransaction(ctx, *ev.Transaction)
	case amqp.EventDeleted:
		return p.exporter.RemoveTransaction(ctx, ev.TransactionID)
	default:
		return fmt.Errorf("unknown event type: %s", ev.Type)
	}
}
