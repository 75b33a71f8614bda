package statement

import (
	"testing"

	"carteira/internal/core"
)

func TestTotalsAndBalance(t *testing.T) {
	in := []core.Transaction{
		tx(core.Income, core.CategoryFood, 10000, "2024-01-10"),
		tx(core.Expense, core.CategoryTransport, 3000, "2024-01-11"),
		tx(core.Expense, core.CategoryFood, 2000, "2024-01-12"),
	}

	if got := TotalIncome(in); got.Cents != 10000 {
		t.Fatalf("total income: expected 10000, got %d", got.Cents)
	}
	if got := TotalExpense(in); got.Cents != 5000 {
		t.Fatalf("total expense: expected 5000, got %d", got.Cents)
	}
	if got := Balance(in); got.Cents != 5000 {
		t.Fatalf("balance: expected 5000, got %d", got.Cents)
	}
}

func TestBalanceGoesNegative(t *testing.T) {
	in := []core.Transaction{
		tx(core.Income, core.CategoryFood, 1000, "2024-01-10"),
		tx(core.Expense, core.CategoryHousing, 2500, "2024-01-11"),
	}
	if got := Balance(in); got.Cents != -1500 {
		t.Fatalf("expected -1500, got %d", got.Cents)
	}
}

func TestCategoryBreakdownExcludesIncome(t *testing.T) {
	in := []core.Transaction{
		tx(core.Income, core.CategoryFood, 10000, "2024-01-10"),
		tx(core.Expense, core.CategoryTransport, 3000, "2024-01-11"),
		tx(core.Expense, core.CategoryFood, 2000, "2024-01-12"),
		tx(core.Expense, core.CategoryTransport, 1000, "2024-01-13"),
	}

	slices := CategoryBreakdown(in)
	if len(slices) != 2 {
		t.Fatalf("expected 2 slices, got %+v", slices)
	}
	if slices[0].Category != core.CategoryTransport || slices[0].Total.Cents != 4000 {
		t.Fatalf("unexpected first slice: %+v", slices[0])
	}
	if slices[1].Category != core.CategoryFood || slices[1].Total.Cents != 2000 {
		t.Fatalf("unexpected second slice: %+v", slices[1])
	}
	for _, s := range slices {
		if s.Category == core.CategoryFood && s.Total.Cents == 12000 {
			t.Fatalf("income leaked into breakdown: %+v", s)
		}
	}
}

func TestCategoryBreakdownColorsAreStable(t *testing.T) {
	in := []core.Transaction{
		tx(core.Expense, core.CategoryTransport, 100, "2024-01-11"),
		tx(core.Expense, core.CategoryFood, 200, "2024-01-12"),
	}
	first := CategoryBreakdown(in)
	second := CategoryBreakdown(in)
	for i := range first {
		if first[i].Color != second[i].Color {
			t.Fatalf("colors not stable: %+v vs %+v", first[i], second[i])
		}
		if first[i].Color == "" {
			t.Fatalf("missing color: %+v", first[i])
		}
	}
	if first[0].Color == first[1].Color {
		t.Fatalf("adjacent categories share a color: %+v", first)
	}
}

func TestAggregatesOnEmptyLedger(t *testing.T) {
	if TotalIncome(nil).Cents != 0 || TotalExpense(nil).Cents != 0 || Balance(nil).Cents != 0 {
		t.Fatalf("empty ledger must aggregate to zero")
	}
	if len(CategoryBreakdown(nil)) != 0 {
		t.Fatalf("empty ledger must have no slices")
	}
}
