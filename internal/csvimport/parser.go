// Package csvimport parses delimited transaction files into normalized
// drafts. The whole import is atomic: the first offending row aborts it, so
// a partial import is never silently accepted.
package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strings"

	"carteira/internal/core"
)

var (
	// ErrEmptyFile marks a well-formed header with zero data rows. Distinct
	// from a parse failure: the file is syntactically fine, just useless.
	ErrEmptyFile = errors.New("csv has no data rows")

	ErrMalformedRow = errors.New("malformed row")
)

// Required columns, in file order. The pt-BR names are what the client's
// upload help text shows; the English ones are accepted as synonyms.
var headerColumns = [4][]string{
	{"tipo", "type"},
	{"valor", "value"},
	{"categoria", "category"},
	{"data", "date"},
}

// HeaderError reports required columns the header does not name.
type HeaderError struct {
	Missing []string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("csv header missing columns: %s", strings.Join(e.Missing, ", "))
}

// RowError attributes a rejected import to one source row. Rows are 1-based
// with the header counting as row 1.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Parse validates and normalizes raw CSV text into drafts in source order.
// The first line must be a header naming tipo, valor, categoria and data
// (or their English synonyms), case- and space-insensitively. Each data row
// is checked in order: column count, type, value, category, date; the first
// violation fails the whole import with its row number.
func Parse(raw string) ([]core.Draft, error) {
	lines := strings.Split(raw, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, &HeaderError{Missing: requiredNames()}
	}

	cols, err := resolveHeader(lines[0])
	if err != nil {
		return nil, err
	}

	var drafts []core.Draft
	for i, line := range lines[1:] {
		row := i + 2 // header is row 1
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields, err := splitRow(line)
		if err != nil {
			return nil, &RowError{Row: row, Err: fmt.Errorf("%w: %v", ErrMalformedRow, err)}
		}
		if len(fields) < 4 {
			return nil, &RowError{Row: row, Err: fmt.Errorf("%w: %d columns", ErrMalformedRow, len(fields))}
		}

		draft, err := core.Normalize(fields[cols[0]], fields[cols[2]], fields[cols[1]], fields[cols[3]])
		if err != nil {
			return nil, &RowError{Row: row, Err: err}
		}
		drafts = append(drafts, draft)
	}

	if len(drafts) == 0 {
		return nil, ErrEmptyFile
	}
	return drafts, nil
}

// resolveHeader maps the four required columns to their positions, failing
// when any is missing.
func resolveHeader(line string) ([4]int, error) {
	var cols [4]int
	fields, err := splitRow(strings.TrimSuffix(line, "\r"))
	if err != nil {
		return cols, &HeaderError{Missing: requiredNames()}
	}

	var missing []string
	for i, names := range headerColumns {
		cols[i] = -1
		for pos, field := range fields {
			norm := strings.ToLower(strings.TrimSpace(field))
			for _, name := range names {
				if norm == name {
					cols[i] = pos
					break
				}
			}
			if cols[i] >= 0 {
				break
			}
		}
		if cols[i] < 0 {
			missing = append(missing, names[0])
		}
	}
	if len(missing) > 0 {
		return cols, &HeaderError{Missing: missing}
	}
	return cols, nil
}

// splitRow parses one physical line, tolerating quoted fields. Parsing line
// by line keeps row numbers honest for error reporting.
func splitRow(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	return r.Read()
}

func requiredNames() []string {
	names := make([]string, 0, len(headerColumns))
	for _, group := range headerColumns {
		names = append(names, group[0])
	}
	return names
}
