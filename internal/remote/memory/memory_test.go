package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"carteira/internal/core"
	"carteira/internal/remote"
)

func draft(t *testing.T, typ, cat, val, date string) core.Draft {
	t.Helper()
	d, err := core.Normalize(typ, cat, val, date)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return d
}

func TestCreateAssignsIdentityAndOrder(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s := NewWithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})
	ctx := context.Background()

	first, err := s.CreateTransaction(ctx, "u1", draft(t, "income", "Alimentação", "1500.00", "2024-01-15"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.ID == "" || first.UserID != "u1" || first.CreatedAt.IsZero() {
		t.Fatalf("missing assigned fields: %+v", first)
	}

	second, err := s.CreateTransaction(ctx, "u1", draft(t, "expense", "Transporte", "200.50", "2024-02-01"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if second.ID == first.ID {
		t.Fatalf("ids must be unique")
	}

	list, err := s.ListTransactions(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("expected newest-first order, got %+v", list)
	}
}

func TestCreateRejectsInvalidDraft(t *testing.T) {
	s := New()
	_, err := s.CreateTransaction(context.Background(), "u1", core.Draft{
		Type: core.Income, Value: core.Money{Cents: 0},
		Category: core.CategoryFood, Date: core.NewDate(2024, 1, 1),
	})
	if err == nil {
		t.Fatalf("expected rejection of zero value draft")
	}
}

func TestUpdate(t *testing.T) {
	s := New()
	ctx := context.Background()
	tx, _ := s.CreateTransaction(ctx, "u1", draft(t, "expense", "Moradia", "800.00", "2024-01-10"))

	val := core.Money{Cents: 90000}
	updated, err := s.UpdateTransaction(ctx, tx.ID, "u1", core.Patch{Value: &val})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Value.Cents != 90000 || updated.Category != core.CategoryHousing {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	if updated.UpdatedAt.Before(tx.UpdatedAt) {
		t.Fatalf("UpdatedAt not refreshed")
	}

	if _, err := s.UpdateTransaction(ctx, "missing", "u1", core.Patch{Value: &val}); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.UpdateTransaction(ctx, tx.ID, "u1", core.Patch{}); err == nil {
		t.Fatalf("expected rejection of empty patch")
	}
}

func TestDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	tx, _ := s.CreateTransaction(ctx, "u1", draft(t, "expense", "Saúde", "120.00", "2024-01-10"))

	if err := s.DeleteTransaction(ctx, tx.ID, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if s.Len("u1") != 0 {
		t.Fatalf("expected empty store after delete")
	}
	if err := s.DeleteTransaction(ctx, tx.ID, "u1"); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("deleting unknown id must fail, got %v", err)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.CreateTransaction(ctx, "u1", draft(t, "income", "Estudo", "50.00", "2024-01-10"))

	list, err := s.ListTransactions(ctx, "u2")
	if err != nil || len(list) != 0 {
		t.Fatalf("expected empty ledger for other user, got %v (err=%v)", list, err)
	}
}
