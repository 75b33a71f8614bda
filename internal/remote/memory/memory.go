// Package memory is an in-memory persistence collaborator. It backs tests
// and the default backend; data is lost on restart.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"carteira/internal/core"
	"carteira/internal/remote"
)

type Store struct {
	mu    sync.Mutex
	byUID map[string][]core.Transaction // newest-first per user
	now   func() time.Time
}

func New() *Store {
	return &Store{
		byUID: make(map[string][]core.Transaction),
		now:   time.Now,
	}
}

// NewWithClock builds a store with an injected clock for deterministic
// timestamps in tests.
func NewWithClock(now func() time.Time) *Store {
	s := New()
	s.now = now
	return s
}

// ListTransactions implements remote.TransactionLister.
func (s *Store) ListTransactions(_ context.Context, userID string) ([]core.Transaction, error) {
	if userID == "" {
		return nil, fmt.Errorf("empty user id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.byUID[userID]...), nil
}

// CreateTransaction implements remote.TransactionCreator. Drafts are
// validated again here: the collaborator is the second line of defense
// against malformed fields.
func (s *Store) CreateTransaction(_ context.Context, userID string, draft core.Draft) (core.Transaction, error) {
	if userID == "" {
		return core.Transaction{}, fmt.Errorf("empty user id")
	}
	if err := draft.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("reject draft: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	tx := draft.Transaction()
	tx.ID = uuid.NewString()
	tx.UserID = userID
	tx.CreatedAt = now
	tx.UpdatedAt = now

	s.byUID[userID] = append([]core.Transaction{tx}, s.byUID[userID]...)
	return tx, nil
}

// UpdateTransaction implements remote.TransactionUpdater.
func (s *Store) UpdateTransaction(_ context.Context, id, userID string, patch core.Patch) (core.Transaction, error) {
	if id == "" || userID == "" {
		return core.Transaction{}, fmt.Errorf("empty id or user id")
	}
	if patch.IsEmpty() {
		return core.Transaction{}, fmt.Errorf("empty patch")
	}
	if err := patch.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("reject patch: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.byUID[userID]
	for i, tx := range list {
		if tx.ID == id {
			merged := patch.Apply(tx)
			merged.UpdatedAt = s.now()
			list[i] = merged
			return merged, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("%w: %s", remote.ErrNotFound, id)
}

// DeleteTransaction implements remote.TransactionDeleter.
func (s *Store) DeleteTransaction(_ context.Context, id, userID string) error {
	if id == "" || userID == "" {
		return fmt.Errorf("empty id or user id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.byUID[userID]
	for i, tx := range list {
		if tx.ID == id {
			s.byUID[userID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", remote.ErrNotFound, id)
}

// Len reports how many transactions the store holds for a user.
func (s *Store) Len(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byUID[userID])
}
