package amqp

import (
	"encoding/json"
	"time"

	"carteira/internal/core"
)

// EventKind is the ledger mutation a message describes.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// TransactionEvent carries a full transaction snapshot so consumers can
// mirror the ledger without reading the collaborator back.
type TransactionEvent struct {
	Event       EventKind `json:"event"`
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Type        string    `json:"type"`
	Category    string    `json:"category"`
	AmountCents int64     `json:"amount_cents"`
	Date        string    `json:"date"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewTransactionEvent snapshots a transaction into an event message.
func NewTransactionEvent(kind EventKind, tx core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		Event:       kind,
		ID:          tx.ID,
		UserID:      tx.UserID,
		Type:        string(tx.Type),
		Category:    string(tx.Category),
		AmountCents: tx.Value.Cents,
		Date:        tx.Date.String(),
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventFromJSON creates a message from JSON bytes
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
