// Package remote defines the outbound port for the persistence collaborator
// that owns the durable copy of each user's ledger, together with the error
// taxonomy the ledger store relies on to distinguish remote failures from
// local validation failures.
package remote

import (
	"context"
	"errors"

	"carteira/internal/core"
)

// Ports for the persistence collaborator. Any document-oriented service
// satisfying these is sufficient; ids and timestamps are assigned remotely.
type (
	TransactionLister interface {
		// ListTransactions returns the user's transactions newest-first by
		// creation time.
		ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	}

	TransactionCreator interface {
		// CreateTransaction persists a draft and returns the stored
		// transaction with its assigned id and timestamps.
		CreateTransaction(ctx context.Context, userID string, draft core.Draft) (core.Transaction, error)
	}

	TransactionUpdater interface {
		// UpdateTransaction applies a partial update to an existing
		// transaction and returns the stored result.
		UpdateTransaction(ctx context.Context, id, userID string, patch core.Patch) (core.Transaction, error)
	}

	TransactionDeleter interface {
		// DeleteTransaction removes a transaction. Deleting an unknown id is
		// a failure, not a silent success.
		DeleteTransaction(ctx context.Context, id, userID string) error
	}
)

// Collaborator is the full contract the ledger store consumes.
type Collaborator interface {
	TransactionLister
	TransactionCreator
	TransactionUpdater
	TransactionDeleter
}

// ErrNotFound is returned by collaborators for updates and deletes against
// ids they do not hold.
var ErrNotFound = errors.New("transaction not found")

// FetchError wraps a failure to read from the collaborator. Callers use it
// to decide that a retry is sensible, unlike a validation failure.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return "fetch: " + e.Err.Error() }

func (e *FetchError) Unwrap() error { return e.Err }

// PersistError wraps a failure to write to the collaborator.
type PersistError struct {
	Op  string // create, update, delete
	Err error
}

func (e *PersistError) Error() string { return "persist " + e.Op + ": " + e.Err.Error() }

func (e *PersistError) Unwrap() error { return e.Err }

// IsFetchError reports whether err is a remote read failure.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// IsPersistError reports whether err is a remote write failure.
func IsPersistError(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe)
}
