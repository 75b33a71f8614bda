// Package services wires the ledger store to its side effects: event
// publishing over AMQP and periodic resync of pending entries.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"carteira/internal/amqp"
	"carteira/internal/core"
	"carteira/internal/csvimport"
	"carteira/internal/ledger"
	"carteira/internal/log"
)

// LedgerService orchestrates ledger mutations and publishes an event per
// confirmed mutation. The AMQP client is optional; without it mutations
// still work and events are skipped.
type LedgerService struct {
	store      *ledger.Store
	amqpClient *amqp.Client
}

func NewLedgerService(store *ledger.Store, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{
		store:      store,
		amqpClient: amqpClient,
	}
}

// Store exposes the underlying ledger for read views.
func (s *LedgerService) Store() *ledger.Store {
	return s.store
}

func (s *LedgerService) Hydrate(ctx context.Context, userID string) error {
	return s.store.Hydrate(ctx, userID)
}

// Create persists a draft and publishes a created event on confirmation. A
// failed publish never fails the request; the transaction is already durable.
func (s *LedgerService) Create(ctx context.Context, userID string, draft core.Draft) (core.Transaction, error) {
	tx, err := s.store.Create(ctx, userID, draft)
	if err != nil {
		return core.Transaction{}, err
	}

	s.publishEvent(ctx, amqp.EventCreated, tx)
	return tx, nil
}

// Import parses raw CSV and creates every draft in source order. Parsing is
// all-or-nothing; persistence is per row with the store's optimistic-retain
// policy, so a mid-import remote failure leaves earlier rows durable and the
// failed row pending.
func (s *LedgerService) Import(ctx context.Context, userID, raw string) ([]core.Transaction, error) {
	drafts, err := csvimport.Parse(raw)
	if err != nil {
		return nil, err
	}

	created := make([]core.Transaction, 0, len(drafts))
	for i, draft := range drafts {
		tx, err := s.Create(ctx, userID, draft)
		if err != nil {
			return created, fmt.Errorf("import row %d: %w", i+2, err)
		}
		created = append(created, tx)
	}

	slog.InfoContext(ctx, "Imported transactions from CSV",
		log.FieldUserID, userID,
		log.FieldRowCount, len(created))
	return created, nil
}

func (s *LedgerService) Update(ctx context.Context, id, userID string, patch core.Patch) (core.Transaction, error) {
	tx, err := s.store.Update(ctx, id, userID, patch)
	if err != nil {
		return core.Transaction{}, err
	}

	s.publishEvent(ctx, amqp.EventUpdated, tx)
	return tx, nil
}

func (s *LedgerService) Delete(ctx context.Context, id, userID string) error {
	// Snapshot before the delete so the event still carries the row data.
	var snapshot core.Transaction
	for _, tx := range s.store.Transactions() {
		if tx.ID == id {
			snapshot = tx
			break
		}
	}

	if err := s.store.Delete(ctx, id, userID); err != nil {
		return err
	}

	if snapshot.ID == "" {
		snapshot.ID = id
		snapshot.UserID = userID
	}
	s.publishEvent(ctx, amqp.EventDeleted, snapshot)
	return nil
}

// Resync retries pending entries and publishes a created event for each one
// that confirms.
func (s *LedgerService) Resync(ctx context.Context, limit int) (int, error) {
	confirmed, err := s.store.Resync(ctx, limit)
	for _, tx := range confirmed {
		s.publishEvent(ctx, amqp.EventCreated, tx)
	}
	if err != nil {
		return len(confirmed), err
	}
	return len(confirmed), nil
}

func (s *LedgerService) Clear() {
	s.store.Clear()
}

func (s *LedgerService) publishEvent(ctx context.Context, kind amqp.EventKind, tx core.Transaction) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(kind, tx)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"event", kind,
			log.FieldTransactionID, tx.ID,
			log.FieldError, err)
	}
}

// Close closes the AMQP connection if one is configured.
func (s *LedgerService) Close() error {
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			return fmt.Errorf("close ledger service: %w", err)
		}
	}
	return nil
}
