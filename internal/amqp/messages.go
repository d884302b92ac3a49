package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// EventType names a change to a user's transaction list.
type EventType string

const (
	EventCreated EventType = "transaction.created"
	EventUpdated EventType = "transaction.updated"
	EventDeleted EventType = "transaction.deleted"
)

func (t EventType) IsValid() bool {
	switch t {
	case EventCreated, EventUpdated, EventDeleted:
		return true
	}
	return false
}

// TransactionEvent is published after a change has been stored. Deleted
// events carry no Transaction.
type TransactionEvent struct {
	Type          EventType         `json:"type"`
	UserID        string            `json:"user_id"`
	TransactionID string            `json:"transaction_id"`
	Transaction   *core.Transaction `json:"transaction,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}

// NewTransactionEvent builds an event for tx stamped with the current time.
func NewTransactionEvent(typ EventType, tx core.Transaction) *TransactionEvent {
	ev := &TransactionEvent{
		Type:          typ,
		UserID:        tx.UserID,
		TransactionID: tx.ID,
		Timestamp:     time.Now().UTC(),
	}
	if typ != EventDeleted {
		ev.Transaction = &tx
	}
	return ev
}

// Validate checks that the event can be routed and applied.
func (e *TransactionEvent) Validate() error {
	if !e.Type.IsValid() {
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.TransactionID == "" || e.UserID == "" {
		return errors.New("event is missing transaction or user id")
	}
	if e.Type != EventDeleted && e.Transaction == nil {
		return fmt.Errorf("%s event has no transaction", e.Type)
	}
	return nil
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes and validates an event.
func EventFromJSON(data []byte) (*TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}
