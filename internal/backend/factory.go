package backend

import (
	"context"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/backend/memory"
	"fintrack/internal/log"
	"fintrack/internal/ports"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// Result is a ready backend plus the hooks the process needs around it.
type Result struct {
	Backend ports.Backend
	Cleanup CleanupFunc
	// Ping reports whether the backend can serve requests.
	Ping func(ctx context.Context) error
	// PurgeSessions drops expired sessions; nil when the backend does not
	// keep them on disk.
	PurgeSessions func(ctx context.Context) (int64, error)
	// Events is true when writes are announced on the event bus.
	Events bool
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// evented routes transaction writes through the event-publishing service
// and everything else straight to the store.
type evented struct {
	ports.UserStore
	ports.SessionStore
	*services.TransactionService
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *Result
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		res = f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.AMQPURL != "" {
		f.wrapWithEvents(res, config)
	}
	return res, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &Result{
		Backend:       repo,
		Cleanup:       repo.Close,
		Ping:          repo.Ping,
		PurgeSessions: repo.PurgeSessions,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() *Result {
	f.logger.Info("Initialized memory backend")
	return &Result{
		Backend: memory.New(),
		Cleanup: func() error { return nil },
		Ping:    func(context.Context) error { return nil },
	}
}

// wrapWithEvents adds the AMQP publisher. A broker that cannot be reached
// at startup leaves the backend working without events.
func (f *DefaultFactory) wrapWithEvents(res *Result, config Config) {
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		return
	}

	svc := services.NewTransactionService(res.Backend, client, f.logger)
	inner := res.Backend
	res.Backend = evented{UserStore: inner, SessionStore: inner, TransactionService: svc}
	res.Events = true

	cleanup := res.Cleanup
	res.Cleanup = func() error {
		svcErr := svc.Close()
		if err := cleanup(); err != nil {
			return err
		}
		return svcErr
	}
	f.logger.Info("Initialized AMQP publisher", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)
}
