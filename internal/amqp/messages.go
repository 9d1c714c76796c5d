package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// EventType names the ledger change carried by a TransactionEvent.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// TransactionEvent is published after every committed ledger write.
// Created and updated events carry the full row; deleted events carry only the ID.
type TransactionEvent struct {
	Type        EventType         `json:"type"`
	ID          int64             `json:"id"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// NewTransactionEvent builds an upsert-style event for t.
func NewTransactionEvent(typ EventType, t core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		Type:        typ,
		ID:          t.ID,
		Transaction: &t,
		Timestamp:   time.Now().UTC(),
	}
}

// NewDeletedEvent builds the event for a removed transaction.
func NewDeletedEvent(id int64) *TransactionEvent {
	return &TransactionEvent{
		Type:      EventDeleted,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

// Validate checks that the event is one a consumer can act on.
func (e *TransactionEvent) Validate() error {
	if e.ID <= 0 {
		return fmt.Errorf("event has invalid id %d", e.ID)
	}
	switch e.Type {
	case EventCreated, EventUpdated:
		if e.Transaction == nil {
			return fmt.Errorf("%s event for id %d has no transaction", e.Type, e.ID)
		}
	case EventDeleted:
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and validates an event.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
