// Package sheets defines the ports for mirroring ledger transactions into
// an external spreadsheet. The worker consumes transaction events and drives
// an Exporter; implementations live in subpackages.
package sheets

import (
	"context"
	"errors"
	"fmt"
)

// ErrRowNotFound is returned when an update or removal targets a transaction
// id that is not present in the sheet.
var ErrRowNotFound = errors.New("sheet row not found")

// Row is one mirrored transaction. Values are kept as wire-friendly strings
// so the exporter never re-validates domain semantics; the ledger already did.
type Row struct {
	ID          string
	UserID      string
	Type        string
	Category    string
	AmountCents int64
	Date        string // YYYY-MM-DD
}

// Validate checks the fields an exporter cannot work without.
func (r Row) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("row: missing id")
	}
	if r.UserID == "" {
		return fmt.Errorf("row: missing user id")
	}
	if r.AmountCents <= 0 {
		return fmt.Errorf("row %s: non-positive amount", r.ID)
	}
	return nil
}

// Exporter mirrors ledger mutations into a spreadsheet, keyed by
// transaction id.
type Exporter interface {
	// AppendRow adds a new row and returns an implementation-specific
	// reference to where it landed.
	AppendRow(ctx context.Context, row Row) (string, error)
	// UpdateRow rewrites the row holding row.ID in place.
	UpdateRow(ctx context.Context, row Row) error
	// RemoveRow deletes the row holding id.
	RemoveRow(ctx context.Context, id string) error
}
