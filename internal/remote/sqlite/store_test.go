package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"carteira/internal/core"
	"carteira/internal/remote"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "carteira.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func draft(t *testing.T, typ, value, category, date string) core.Draft {
	t.Helper()
	d, err := core.Normalize(typ, category, value, date)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	return d
}

func TestCreateAndListNewestFirst(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	seq := 0
	s.now = func() time.Time {
		seq++
		return base.Add(time.Duration(seq) * time.Second)
	}

	first, err := s.CreateTransaction(ctx, "u1", draft(t, "income", "100.00", "Alimentação", "2024-01-15"))
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	second, err := s.CreateTransaction(ctx, "u1", draft(t, "expense", "30.00", "Transporte", "2024-02-01"))
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	if first.ID == "" || first.ID == second.ID {
		t.Fatalf("ids not unique: %q vs %q", first.ID, second.ID)
	}

	txs, err := s.ListTransactions(ctx, "u1")
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("len = %d, want 2", len(txs))
	}
	if txs[0].ID != second.ID {
		t.Errorf("list not newest-first: head = %s", txs[0].ID)
	}
	if txs[1].Value.Cents != 10000 {
		t.Errorf("round-tripped value = %d, want 10000", txs[1].Value.Cents)
	}
	if txs[1].Date.String() != "2024-01-15" {
		t.Errorf("round-tripped date = %s, want 2024-01-15", txs[1].Date.String())
	}
}

func TestCreateRejectsInvalidDraft(t *testing.T) {
	s := testStore(t)

	bad := core.Draft{Type: "transfer"}
	_, err := s.CreateTransaction(context.Background(), "u1", bad)
	if !remote.IsPersistError(err) {
		t.Fatalf("CreateTransaction() error = %v, want PersistError", err)
	}
	if !errors.Is(err, core.ErrUnknownType) {
		t.Errorf("error = %v, want ErrUnknownType", err)
	}
}

func TestUpdateMergesAndScopesByUser(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	tx, err := s.CreateTransaction(ctx, "u1", draft(t, "expense", "30.00", "Transporte", "2024-02-01"))
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	v := core.Money{Cents: 4500}
	cat := core.CategoryHealth
	updated, err := s.UpdateTransaction(ctx, tx.ID, "u1", core.Patch{Value: &v, Category: &cat})
	if err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}
	if updated.Value.Cents != 4500 || updated.Category != core.CategoryHealth {
		t.Errorf("updated = %+v, want value 4500 and Saúde", updated)
	}
	if updated.Type != core.Expense || updated.Date.String() != "2024-02-01" {
		t.Errorf("untouched fields changed: %+v", updated)
	}

	// Another user's id never matches.
	if _, err := s.UpdateTransaction(ctx, tx.ID, "u2", core.Patch{Value: &v}); !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("cross-user update error = %v, want ErrNotFound", err)
	}
}

func TestUpdateUnknownIDFails(t *testing.T) {
	s := testStore(t)

	v := core.Money{Cents: 100}
	_, err := s.UpdateTransaction(context.Background(), "missing", "u1", core.Patch{Value: &v})
	if !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("UpdateTransaction() error = %v, want ErrNotFound", err)
	}
}

func TestDeleteUnknownIDIsFailure(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	tx, err := s.CreateTransaction(ctx, "u1", draft(t, "expense", "30.00", "Transporte", "2024-02-01"))
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	if err := s.DeleteTransaction(ctx, tx.ID, "u1"); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	if err := s.DeleteTransaction(ctx, tx.ID, "u1"); !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}

	txs, err := s.ListTransactions(ctx, "u1")
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("len = %d after delete, want 0", len(txs))
	}
}
