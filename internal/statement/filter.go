// Package statement holds the pure transforms between a raw transaction
// list and what the client renders: multi-field filtering, calendar-month
// grouping, the load-more window and the summary aggregates.
package statement

import "carteira/internal/core"

// Criteria is a set of optional constraints. A nil field imposes no
// constraint on its dimension, which keeps "no filter" distinct from
// filtering by a zero value.
type Criteria struct {
	Category *core.Category
	Type     *core.TransactionType
	DateFrom *core.Date
	DateTo   *core.Date
	ValueMin *core.Money
	ValueMax *core.Money
}

// IsZero reports whether no constraint is set.
func (c Criteria) IsZero() bool {
	return c.ActiveCount() == 0
}

// ActiveCount returns the number of set fields. It agrees exactly with the
// constraints Matches applies; the client shows it as the filter badge.
func (c Criteria) ActiveCount() int {
	n := 0
	if c.Category != nil {
		n++
	}
	if c.Type != nil {
		n++
	}
	if c.DateFrom != nil {
		n++
	}
	if c.DateTo != nil {
		n++
	}
	if c.ValueMin != nil {
		n++
	}
	if c.ValueMax != nil {
		n++
	}
	return n
}

// Matches reports whether the transaction satisfies every set constraint.
// Date and value bounds are inclusive.
func (c Criteria) Matches(tx core.Transaction) bool {
	if c.Category != nil && tx.Category != *c.Category {
		return false
	}
	if c.Type != nil && tx.Type != *c.Type {
		return false
	}
	if c.DateFrom != nil && tx.Date.Before(*c.DateFrom) {
		return false
	}
	if c.DateTo != nil && tx.Date.After(*c.DateTo) {
		return false
	}
	if c.ValueMin != nil && tx.Value.Cents < c.ValueMin.Cents {
		return false
	}
	if c.ValueMax != nil && tx.Value.Cents > c.ValueMax.Cents {
		return false
	}
	return true
}

// Filter returns the transactions satisfying the criteria, preserving
// relative order. Empty criteria are the identity.
func Filter(txs []core.Transaction, c Criteria) []core.Transaction {
	if c.IsZero() {
		return txs
	}
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if c.Matches(tx) {
			out = append(out, tx)
		}
	}
	return out
}
