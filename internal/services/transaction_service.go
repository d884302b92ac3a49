package services

import (
	"context"
	"fmt"
	"io"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/ports"
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	Publish(ctx context.Context, ev *amqp.TransactionEvent) error
}

// TransactionService stores changes in the wrapped repository and then
// announces them on the event bus. Publishing is best effort: once the
// repository call succeeds the change is reported as successful.
type TransactionService struct {
	repo      ports.TransactionRepository
	publisher EventPublisher
	logger    *log.Logger
}

var _ ports.TransactionRepository = (*TransactionService)(nil)

// NewTransactionService wraps repo. publisher may be nil, in which case
// events are skipped with a warning.
func NewTransactionService(repo ports.TransactionRepository, publisher EventPublisher, logger *log.Logger) *TransactionService {
	return &TransactionService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentBackend),
	}
}

func (s *TransactionService) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	return s.repo.ListTransactions(ctx, userID)
}

func (s *TransactionService) InsertTransaction(ctx context.Context, userID string, d core.Draft) (core.Transaction, error) {
	tx, err := s.repo.InsertTransaction(ctx, userID, d)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.publish(ctx, amqp.NewTransactionEvent(amqp.EventCreated, tx))
	return tx, nil
}

func (s *TransactionService) UpdateTransaction(ctx context.Context, userID, id string, p core.Patch) (core.Transaction, error) {
	tx, err := s.repo.UpdateTransaction(ctx, userID, id, p)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.publish(ctx, amqp.NewTransactionEvent(amqp.EventUpdated, tx))
	return tx, nil
}

func (s *TransactionService) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.publish(ctx, amqp.NewTransactionEvent(amqp.EventDeleted, core.Transaction{ID: id, UserID: userID}))
	return nil
}

func (s *TransactionService) publish(ctx context.Context, ev *amqp.TransactionEvent) {
	if s.publisher == nil {
		s.logger.WarnContext(ctx, "Event publisher not available, skipping event",
			log.FieldEventType, ev.Type,
			log.FieldTransactionID, ev.TransactionID)
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction event",
			log.FieldEventType, ev.Type,
			log.FieldTransactionID, ev.TransactionID,
			log.FieldOperation, log.OpPublish,
			log.FieldError, err)
	}
}

// Close closes the publisher when it holds a connection.
func (s *TransactionService) Close() error {
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close publisher: %w", err)
		}
	}
	return nil
}
