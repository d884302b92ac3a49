package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func TestSessionPurgerRunsAtStartAndOnTick(t *testing.T) {
	var calls atomic.Int32
	purge := func(context.Context) (int64, error) {
		if calls.Add(1) == 2 {
			return 0, errors.New("locked")
		}
		return 3, nil
	}
	w := NewSessionPurger(purge, 5*time.Millisecond, log.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("purge ran %d times", calls.Load())
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v, a failed purge must not stop the worker", err)
	}
}

// channelSource feeds events from a channel until ctx ends.
type channelSource struct {
	events chan *amqp.TransactionEvent
	err    error
}

func (s *channelSource) Consume(ctx context.Context, handler func(context.Context, *amqp.TransactionEvent) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-s.events:
			if !ok {
				return s.err
			}
			_ = handler(ctx, ev)
		}
	}
}

type memoryExporter struct {
	mu      sync.Mutex
	rows    map[string]core.Transaction
	headers int
}

func (e *memoryExporter) EnsureHeader(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.headers++
	return nil
}

func (e *memoryExporter) UpsertTransaction(_ context.Context, tx core.Transaction) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rows[tx.ID] = tx
	return nil
}

func (e *memoryExporter) RemoveTransaction(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.rows, id)
	return nil
}

func TestExporterAppliesEventsAndStopsOnCancel(t *testing.T) {
	src := &channelSource{events: make(chan *amqp.TransactionEvent, 2)}
	sink := &memoryExporter{rows: make(map[string]core.Transaction)}
	proc := services.NewExportProcessor(src, sink, services.DefaultExportProcessorConfig(), log.Discard())
	w := NewExporter(proc, sink, time.Millisecond, log.Discard())

	tx := core.Transaction{ID: "t-1", UserID: "u-1", Kind: core.KindIncome, Amount: core.Cents(100), Category: "Gift", Date: core.NewDate(2024, 1, 2)}
	src.events <- amqp.NewTransactionEvent(amqp.EventCreated, tx)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for proc.Stats().Exported < 1 {
		select {
		case <-deadline:
			t.Fatal("event was not exported")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.headers != 1 {
		t.Errorf("header written %d times", sink.headers)
	}
	if _, ok := sink.rows["t-1"]; !ok {
		t.Error("row missing after export")
	}
}

func TestExporterReturnsConsumerError(t *testing.T) {
	src := &channelSource{events: make(chan *amqp.TransactionEvent), err: errors.New("broker gone")}
	close(src.events)
	sink := &memoryExporter{rows: make(map[string]core.Transaction)}
	proc := services.NewExportProcessor(src, sink, services.DefaultExportProcessorConfig(), log.Discard())

	err := NewExporter(proc, nil, time.Hour, log.Discard()).Run(context.Background())
	if err == nil || err.Error() != "broker gone" {
		t.Fatalf("err = %v", err)
	}
}
