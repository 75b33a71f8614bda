package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// Closed category set. Canonical values are the pt-BR labels the client
// renders; the chart palette is keyed by position in Categories().
const (
	CategoryFood      Category = "Alimentação"
	CategoryHousing   Category = "Moradia"
	CategoryHealth    Category = "Saúde"
	CategoryEducation Category = "Estudo"
	CategoryTransport Category = "Transporte"
)

type (
	TransactionType string

	Category string

	// Transaction is a canonical, persisted ledger entry. ID, UserID and the
	// timestamps are assigned by the remote collaborator; a not-yet-persisted
	// transaction carries the zero values for all four.
	Transaction struct {
		ID        string
		Type      TransactionType
		Value     Money
		Category  Category
		Date      Date
		UserID    string
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Draft is a normalized transaction candidate: everything the user
	// supplies, nothing the collaborator assigns.
	Draft struct {
		Type     TransactionType
		Value    Money
		Category Category
		Date     Date
	}

	// Patch carries the optional fields of a partial update. A nil field
	// means "leave unchanged".
	Patch struct {
		Type     *TransactionType
		Value    *Money
		Category *Category
		Date     *Date
	}
)

var (
	ErrUnknownType     = errors.New("unknown transaction type")
	ErrUnknownCategory = errors.New("unknown category")
)

// ValidationError attributes a rejected input to a single field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalidField(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// Categories returns the closed category set in palette order.
func Categories() []Category {
	return []Category{
		CategoryFood,
		CategoryHousing,
		CategoryHealth,
		CategoryEducation,
		CategoryTransport,
	}
}

// ParseTransactionType normalizes a raw type label. Accepts the canonical
// values and the pt-BR labels used by forms and CSV files.
func ParseTransactionType(raw string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "income", "receita":
		return Income, nil
	case "expense", "despesa":
		return Expense, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, raw)
}

// ParseCategory matches a raw label against the closed set, ignoring case
// and surrounding space. Unknown categories are rejected, never coerced.
func ParseCategory(raw string) (Category, error) {
	trimmed := strings.TrimSpace(raw)
	for _, c := range Categories() {
		if strings.EqualFold(trimmed, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, raw)
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownType, string(t))
}

func (c Category) Validate() error {
	for _, known := range Categories() {
		if c == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownCategory, string(c))
}

// Normalize turns raw form or CSV fields into a Draft, applying the shared
// acceptance rules: known type, strictly positive value, closed category
// set, YYYY-MM-DD date. Errors are ValidationErrors naming the field.
func Normalize(rawType, rawCategory, rawValue, rawDate string) (Draft, error) {
	typ, err := ParseTransactionType(rawType)
	if err != nil {
		return Draft{}, invalidField("type", err)
	}

	cents, err := ParseDecimalToCents(rawValue)
	if err != nil {
		return Draft{}, invalidField("value", err)
	}

	cat, err := ParseCategory(rawCategory)
	if err != nil {
		return Draft{}, invalidField("category", err)
	}

	date, err := ParseDate(rawDate)
	if err != nil {
		return Draft{}, invalidField("date", err)
	}

	return Draft{Type: typ, Value: Money{Cents: cents}, Category: cat, Date: date}, nil
}

func (d Draft) Validate() error {
	if err := d.Type.Validate(); err != nil {
		return invalidField("type", err)
	}
	if err := d.Value.Validate(); err != nil {
		return invalidField("value", err)
	}
	if err := d.Category.Validate(); err != nil {
		return invalidField("category", err)
	}
	if err := d.Date.Validate(); err != nil {
		return invalidField("date", err)
	}
	return nil
}

// IsEmpty reports whether the patch carries no fields at all.
func (p Patch) IsEmpty() bool {
	return p.Type == nil && p.Value == nil && p.Category == nil && p.Date == nil
}

// Validate applies the same per-field rules as Normalize to every field the
// patch carries.
func (p Patch) Validate() error {
	if p.Type != nil {
		if err := p.Type.Validate(); err != nil {
			return invalidField("type", err)
		}
	}
	if p.Value != nil {
		if err := p.Value.Validate(); err != nil {
			return invalidField("value", err)
		}
	}
	if p.Category != nil {
		if err := p.Category.Validate(); err != nil {
			return invalidField("category", err)
		}
	}
	if p.Date != nil {
		if err := p.Date.Validate(); err != nil {
			return invalidField("date", err)
		}
	}
	return nil
}

// Apply merges the patch into a transaction copy. UpdatedAt is the caller's
// concern: the store refreshes it only after the remote confirms.
func (p Patch) Apply(tx Transaction) Transaction {
	if p.Type != nil {
		tx.Type = *p.Type
	}
	if p.Value != nil {
		tx.Value = *p.Value
	}
	if p.Category != nil {
		tx.Category = *p.Category
	}
	if p.Date != nil {
		tx.Date = *p.Date
	}
	return tx
}

// Transaction returns the draft as a transaction with no collaborator-owned
// fields populated.
func (d Draft) Transaction() Transaction {
	return Transaction{
		Type:     d.Type,
		Value:    d.Value,
		Category: d.Category,
		Date:     d.Date,
	}
}
