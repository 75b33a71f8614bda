package statement

import "carteira/internal/core"

// Chart palette from the category chart, assigned by first-seen category
// order and wrapping when categories outnumber colors.
var palette = []string{"#2196F3", "#9C27B0", "#E91E63", "#FF9800", "#4CAF50"}

// CategoryColor returns the palette color for the i-th slice.
func CategoryColor(i int) string {
	if i < 0 {
		i = 0
	}
	return palette[i%len(palette)]
}

// CategorySlice is one slice of the category chart: per-category expense
// total plus its stable color.
type CategorySlice struct {
	Category core.Category
	Total    core.Money
	Color    string
}

// TotalIncome sums the value of income transactions.
func TotalIncome(txs []core.Transaction) core.Money {
	var cents int64
	for _, tx := range txs {
		if tx.Type == core.Income {
			cents += tx.Value.Cents
		}
	}
	return core.Money{Cents: cents}
}

// TotalExpense sums the value of expense transactions.
func TotalExpense(txs []core.Transaction) core.Money {
	var cents int64
	for _, tx := range txs {
		if tx.Type == core.Expense {
			cents += tx.Value.Cents
		}
	}
	return core.Money{Cents: cents}
}

// Balance folds the ledger into a signed net total: income adds, expense
// subtracts.
func Balance(txs []core.Transaction) core.Money {
	var cents int64
	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			cents += tx.Value.Cents
		case core.Expense:
			cents -= tx.Value.Cents
		}
	}
	return core.Money{Cents: cents}
}

// CategoryBreakdown sums expense values per category. Income is excluded
// from the chart entirely; slices and their colors follow first-seen
// category order.
func CategoryBreakdown(txs []core.Transaction) []CategorySlice {
	var slices []CategorySlice
	index := make(map[core.Category]int)

	for _, tx := range txs {
		if tx.Type != core.Expense {
			continue
		}
		i, ok := index[tx.Category]
		if !ok {
			i = len(slices)
			index[tx.Category] = i
			slices = append(slices, CategorySlice{
				Category: tx.Category,
				Color:    CategoryColor(i),
			})
		}
		slices[i].Total.Cents += tx.Value.Cents
	}
	return slices
}
