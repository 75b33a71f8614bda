// Package ledger holds the authoritative in-memory transaction collection
// for one user session and reconciles it with the remote collaborator.
// Reads are served locally; every mutation delegates persistence and applies
// the per-operation policy: optimistic retain on create, remote-first on
// update and delete.
package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"carteira/internal/core"
	"carteira/internal/remote"
	"carteira/internal/statement"
)

type EntryStatus string

const (
	// StatusPending marks an optimistic entry the collaborator has not
	// confirmed yet. It has no remote id and survives a failed create so the
	// user's input is not lost.
	StatusPending EntryStatus = "pending"

	StatusConfirmed EntryStatus = "confirmed"
)

// Entry is one ledger position. LocalID is a store-assigned handle that is
// stable across confirmation, so a create can merge the remote result back
// into the same position even after the slice has shifted.
type Entry struct {
	LocalID     string
	Status      EntryStatus
	Transaction core.Transaction
}

var (
	// ErrSuperseded reports that a newer mutation for the same transaction
	// replaced this one while its remote call was in flight. The local state
	// reflects only the newer mutation's outcome.
	ErrSuperseded = errors.New("superseded by a newer mutation")

	ErrEmptyPatch  = errors.New("no fields to update")
	ErrMissingID   = errors.New("missing transaction id")
	ErrMissingUser = errors.New("missing user id")
)

// inflight tracks one outstanding remote mutation for a transaction id.
type inflight struct {
	cancel context.CancelFunc
}

// Store is the stateful coordinator between the UI-facing read views and the
// remote collaborator. It is safe for concurrent use; remote calls happen
// outside the lock so a slow collaborator never blocks reads.
type Store struct {
	mu      sync.Mutex
	remote  remote.Collaborator
	now     func() time.Time
	userID  string
	entries []Entry
	pending map[string]*inflight // keyed by transaction id
	busy    int
	lastErr error
}

func New(collab remote.Collaborator) *Store {
	return NewWithClock(collab, time.Now)
}

// NewWithClock injects the clock used to refresh UpdatedAt after an update
// confirms. Tests pin it.
func NewWithClock(collab remote.Collaborator, now func() time.Time) *Store {
	return &Store{
		remote:  collab,
		now:     now,
		pending: make(map[string]*inflight),
	}
}

// Hydrate replaces the local collection with the user's remote ledger. On
// failure the prior state is left untouched and the error is recorded.
func (s *Store) Hydrate(ctx context.Context, userID string) error {
	if userID == "" {
		return invalidField("userId", ErrMissingUser)
	}

	s.mu.Lock()
	s.busy++
	s.mu.Unlock()

	txs, err := s.remote.ListTransactions(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy--
	if err != nil {
		err = asFetch(err)
		s.lastErr = err
		return err
	}

	entries := make([]Entry, len(txs))
	for i, tx := range txs {
		entries[i] = Entry{LocalID: uuid.NewString(), Status: StatusConfirmed, Transaction: tx}
	}
	s.entries = entries
	s.userID = userID
	s.lastErr = nil
	return nil
}

// Create optimistically inserts the draft at the head of the collection and
// then persists it. On success the pending entry is confirmed in place with
// the collaborator's id and timestamps; on failure it is retained as pending
// and the error is surfaced.
func (s *Store) Create(ctx context.Context, userID string, draft core.Draft) (core.Transaction, error) {
	if userID == "" {
		return core.Transaction{}, invalidField("userId", ErrMissingUser)
	}
	if err := draft.Validate(); err != nil {
		return core.Transaction{}, err
	}

	optimistic := draft.Transaction()
	optimistic.UserID = userID
	entry := Entry{LocalID: uuid.NewString(), Status: StatusPending, Transaction: optimistic}

	s.mu.Lock()
	s.entries = append([]Entry{entry}, s.entries...)
	s.busy++
	s.mu.Unlock()

	confirmed, err := s.remote.CreateTransaction(ctx, userID, draft)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy--
	if err != nil {
		err = asPersist("create", err)
		s.lastErr = err
		return core.Transaction{}, err
	}

	// A Clear between insert and confirmation ended the session; do not
	// resurrect the entry.
	if i := s.indexOfLocal(entry.LocalID); i >= 0 {
		s.entries[i].Status = StatusConfirmed
		s.entries[i].Transaction = confirmed
	}
	s.lastErr = nil
	return confirmed, nil
}

// Update validates locally, then applies the patch remote-first: the local
// copy is only merged after the collaborator confirms, so displayed numbers
// are never ahead of the durable ones. A concurrent update or delete for the
// same id supersedes this one.
func (s *Store) Update(ctx context.Context, id, userID string, patch core.Patch) (core.Transaction, error) {
	if id == "" {
		return core.Transaction{}, invalidField("id", ErrMissingID)
	}
	if userID == "" {
		return core.Transaction{}, invalidField("userId", ErrMissingUser)
	}
	if patch.IsEmpty() {
		return core.Transaction{}, invalidField("fields", ErrEmptyPatch)
	}
	if err := patch.Validate(); err != nil {
		return core.Transaction{}, err
	}

	mctx, m := s.begin(ctx, id)
	updated, err := s.remote.UpdateTransaction(mctx, id, userID, patch)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finish(id, m) {
		return core.Transaction{}, ErrSuperseded
	}
	if err != nil {
		err = asPersist("update", err)
		s.lastErr = err
		return core.Transaction{}, err
	}

	if updated.UpdatedAt.IsZero() {
		updated.UpdatedAt = s.now()
	}
	if i := s.indexOfID(id); i >= 0 {
		s.entries[i].Transaction = updated
	}
	s.lastErr = nil
	return updated, nil
}

// Delete removes remote-first. The remote call is attempted even when the id
// is absent locally; on remote failure the local entry, if any, is retained.
func (s *Store) Delete(ctx context.Context, id, userID string) error {
	if id == "" {
		return invalidField("id", ErrMissingID)
	}
	if userID == "" {
		return invalidField("userId", ErrMissingUser)
	}

	mctx, m := s.begin(ctx, id)
	err := s.remote.DeleteTransaction(mctx, id, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finish(id, m) {
		return ErrSuperseded
	}
	if err != nil {
		err = asPersist("delete", err)
		s.lastErr = err
		return err
	}

	if i := s.indexOfID(id); i >= 0 {
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
	}
	s.lastErr = nil
	return nil
}

// Resync retries remote persistence for pending entries, oldest first,
// confirming each in place on success. At most limit entries are attempted
// per call (limit <= 0 means all). It returns the confirmed transactions and
// the first error encountered.
func (s *Store) Resync(ctx context.Context, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	var retry []Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].Status == StatusPending {
			retry = append(retry, s.entries[i])
			if limit > 0 && len(retry) == limit {
				break
			}
		}
	}
	s.mu.Unlock()

	var confirmed []core.Transaction
	for _, entry := range retry {
		tx := entry.Transaction
		draft := core.Draft{Type: tx.Type, Value: tx.Value, Category: tx.Category, Date: tx.Date}

		remoteTx, err := s.remote.CreateTransaction(ctx, tx.UserID, draft)
		if err != nil {
			return confirmed, asPersist("create", err)
		}

		s.mu.Lock()
		if i := s.indexOfLocal(entry.LocalID); i >= 0 {
			s.entries[i].Status = StatusConfirmed
			s.entries[i].Transaction = remoteTx
		}
		s.mu.Unlock()
		confirmed = append(confirmed, remoteTx)
	}
	return confirmed, nil
}

// Clear wipes all session state and cancels in-flight mutations. Invoked on
// logout; a late remote completion after Clear mutates nothing.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range s.pending {
		m.cancel()
		delete(s.pending, id)
	}
	s.entries = nil
	s.userID = ""
	s.lastErr = nil
}

// Loading reports whether any remote operation is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy > 0 || len(s.pending) > 0
}

// LastErr returns the most recent remote failure, cleared by the next
// successful remote operation.
func (s *Store) LastErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Transactions returns the current collection newest-first, pending entries
// included.
func (s *Store) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs := make([]core.Transaction, len(s.entries))
	for i, e := range s.entries {
		txs[i] = e.Transaction
	}
	return txs
}

// Entries returns a copy of the collection with its pending/confirmed tags.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// PendingCount reports how many entries await remote confirmation.
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.Status == StatusPending {
			n++
		}
	}
	return n
}

// Derived read views. Recomputed on every call; the collection is bounded to
// one user's history, so caching across mutations is not worth the
// invalidation bookkeeping.

func (s *Store) Filtered(c statement.Criteria) []core.Transaction {
	return statement.Filter(s.Transactions(), c)
}

func (s *Store) Months(c statement.Criteria) []statement.MonthBucket {
	return statement.GroupByMonth(s.Filtered(c))
}

// Summary bundles the aggregate views of one filtered slice of the ledger.
type Summary struct {
	Income    core.Money
	Expense   core.Money
	Balance   core.Money
	Breakdown []statement.CategorySlice
}

func (s *Store) Summarize(c statement.Criteria) Summary {
	txs := s.Filtered(c)
	return Summary{
		Income:    statement.TotalIncome(txs),
		Expense:   statement.TotalExpense(txs),
		Balance:   statement.Balance(txs),
		Breakdown: statement.CategoryBreakdown(txs),
	}
}

// begin registers an in-flight mutation for id, superseding any older one by
// canceling its context. Newest wins: the older call's result is discarded
// when it settles.
func (s *Store) begin(ctx context.Context, id string) (context.Context, *inflight) {
	mctx, cancel := context.WithCancel(ctx)
	m := &inflight{cancel: cancel}

	s.mu.Lock()
	if prev, ok := s.pending[id]; ok {
		prev.cancel()
	}
	s.pending[id] = m
	s.mu.Unlock()
	return mctx, m
}

// finish deregisters m and reports whether it is still the current mutation
// for id. Callers hold s.mu.
func (s *Store) finish(id string, m *inflight) bool {
	m.cancel()
	if s.pending[id] != m {
		return false
	}
	delete(s.pending, id)
	return true
}

func (s *Store) indexOfLocal(localID string) int {
	for i, e := range s.entries {
		if e.LocalID == localID {
			return i
		}
	}
	return -1
}

func (s *Store) indexOfID(id string) int {
	for i, e := range s.entries {
		if e.Status == StatusConfirmed && e.Transaction.ID == id {
			return i
		}
	}
	return -1
}

func invalidField(field string, err error) error {
	return &core.ValidationError{Field: field, Err: err}
}

func asFetch(err error) error {
	if remote.IsFetchError(err) {
		return err
	}
	return &remote.FetchError{Err: err}
}

func asPersist(op string, err error) error {
	if remote.IsPersistError(err) {
		return err
	}
	return &remote.PersistError{Op: op, Err: err}
}
