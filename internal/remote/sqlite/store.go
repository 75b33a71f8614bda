// Package sqlite implements the remote collaborator on an embedded SQLite
// database. It validates field shapes server-side as a second line of
// defense, independent of the ledger store's local validation.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"carteira/internal/core"
	"carteira/internal/remote"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ remote.Collaborator = (*Store)(nil)

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const listQuery = `
SELECT id, user_id, type, amount_cents, category, date, created_at, updated_at
FROM transactions
WHERE user_id = ?
ORDER BY created_at DESC, rowid DESC`

func (s *Store) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, listQuery, userID)
	if err != nil {
		return nil, &remote.FetchError{Err: fmt.Errorf("list transactions: %w", err)}
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, &remote.FetchError{Err: err}
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, &remote.FetchError{Err: fmt.Errorf("list transactions: %w", err)}
	}
	return txs, nil
}

const insertQuery = `
INSERT INTO transactions (id, user_id, type, amount_cents, category, date, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (s *Store) CreateTransaction(ctx context.Context, userID string, draft core.Draft) (core.Transaction, error) {
	if userID == "" {
		return core.Transaction{}, &remote.PersistError{Op: "create", Err: fmt.Errorf("missing user id")}
	}
	if err := draft.Validate(); err != nil {
		return core.Transaction{}, &remote.PersistError{Op: "create", Err: err}
	}

	now := s.now().UTC()
	tx := draft.Transaction()
	tx.ID = uuid.NewString()
	tx.UserID = userID
	tx.CreatedAt = now
	tx.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, insertQuery,
		tx.ID, tx.UserID, string(tx.Type), tx.Value.Cents, string(tx.Category), tx.Date.String(),
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return core.Transaction{}, &remote.PersistError{Op: "create", Err: fmt.Errorf("insert transaction: %w", err)}
	}
	return tx, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, id, userID string, patch core.Patch) (core.Transaction, error) {
	if id == "" || userID == "" {
		return core.Transaction{}, &remote.PersistError{Op: "update", Err: fmt.Errorf("missing id or user id")}
	}
	if patch.IsEmpty() {
		return core.Transaction{}, &remote.PersistError{Op: "update", Err: fmt.Errorf("no fields to update")}
	}
	if err := patch.Validate(); err != nil {
		return core.Transaction{}, &remote.PersistError{Op: "update", Err: err}
	}

	set := make([]string, 0, 5)
	args := make([]any, 0, 7)
	if patch.Type != nil {
		set = append(set, "type = ?")
		args = append(args, string(*patch.Type))
	}
	if patch.Value != nil {
		set = append(set, "amount_cents = ?")
		args = append(args, patch.Value.Cents)
	}
	if patch.Category != nil {
		set = append(set, "category = ?")
		args = append(args, string(*patch.Category))
	}
	if patch.Date != nil {
		set = append(set, "date = ?")
		args = append(args, patch.Date.String())
	}
	set = append(set, "updated_at = ?")
	args = append(args, s.now().UTC().Format(time.RFC3339Nano))
	args = append(args, id, userID)

	query := fmt.Sprintf("UPDATE transactions SET %s WHERE id = ? AND user_id = ?", strings.Join(set, ", "))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return core.Transaction{}, &remote.PersistError{Op: "update", Err: fmt.Errorf("update transaction: %w", err)}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Transaction{}, &remote.PersistError{Op: "update", Err: fmt.Errorf("rows affected: %w", err)}
	}
	if n == 0 {
		return core.Transaction{}, &remote.PersistError{Op: "update", Err: remote.ErrNotFound}
	}

	return s.getTransaction(ctx, id, userID)
}

func (s *Store) DeleteTransaction(ctx context.Context, id, userID string) error {
	if id == "" || userID == "" {
		return &remote.PersistError{Op: "delete", Err: fmt.Errorf("missing id or user id")}
	}

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM transactions WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return &remote.PersistError{Op: "delete", Err: fmt.Errorf("delete transaction: %w", err)}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &remote.PersistError{Op: "delete", Err: fmt.Errorf("rows affected: %w", err)}
	}
	// Deleting an unknown id is a failure, not a silent success.
	if n == 0 {
		return &remote.PersistError{Op: "delete", Err: remote.ErrNotFound}
	}
	return nil
}

const getQuery = `
SELECT id, user_id, type, amount_cents, category, date, created_at, updated_at
FROM transactions
WHERE id = ? AND user_id = ?`

func (s *Store) getTransaction(ctx context.Context, id, userID string) (core.Transaction, error) {
	row := s.db.QueryRowContext(ctx, getQuery, id, userID)
	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return core.Transaction{}, &remote.FetchError{Err: remote.ErrNotFound}
	}
	if err != nil {
		return core.Transaction{}, &remote.FetchError{Err: err}
	}
	return tx, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx                   core.Transaction
		typ, category, date  string
		createdAt, updatedAt string
	)
	if err := row.Scan(&tx.ID, &tx.UserID, &typ, &tx.Value.Cents, &category, &date, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}

	tx.Type = core.TransactionType(typ)
	tx.Category = core.Category(category)

	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("stored date %q: %w", date, err)
	}
	tx.Date = d

	if tx.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return core.Transaction{}, err
	}
	if tx.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("stored timestamp %q: unrecognized format", s)
}
