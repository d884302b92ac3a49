// Package worker runs the periodic background jobs of the fintrack
// processes.
package worker

import (
	"context"
	"time"

	"fintrack/internal/log"
)

// PurgeFunc deletes expired records and reports how many went.
type PurgeFunc func(ctx context.Context) (int64, error)

// SessionPurger drops expired sessions once at start-up and then on every
// tick. A failed purge is logged and retried on the next tick.
type SessionPurger struct {
	purge    PurgeFunc
	interval time.Duration
	logger   *log.Logger
}

func NewSessionPurger(purge PurgeFunc, interval time.Duration, logger *log.Logger) *SessionPurger {
	return &SessionPurger{
		purge:    purge,
		interval: interval,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Run blocks until ctx is done and returns nil then.
func (w *SessionPurger) Run(ctx context.Context) error {
	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *SessionPurger) runOnce(ctx context.Context) {
	n, err := w.purge(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.ErrorContext(ctx, "Session purge failed",
				log.FieldOperation, log.OpPurge,
				log.FieldErrorType, log.ErrorTypeDatabase,
				log.FieldError, err)
		}
		return
	}
	if n > 0 {
		w.logger.InfoContext(ctx, "Expired sessions purged",
			log.FieldOperation, log.OpPurge,
			log.FieldCount, n)
	}
}
