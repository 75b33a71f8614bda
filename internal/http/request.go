package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"carteira/internal/core"
	"carteira/internal/statement"
)

// transactionPayload is the JSON body for create requests. Fields arrive as
// raw strings and go through the same normalization as CSV rows.
type transactionPayload struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Category string `json:"category"`
	Date     string `json:"date"`
}

// patchPayload is the JSON body for update requests. A missing field leaves
// the stored value unchanged.
type patchPayload struct {
	Type     *string `json:"type"`
	Value    *string `json:"value"`
	Category *string `json:"category"`
	Date     *string `json:"date"`
}

const maxBodyBytes = 1 << 20 // 1 MiB, plenty for a CSV statement export

// requestError marks a malformed request body, distinct from domain
// validation failures.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func decodeBody(r *http.Request, v any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &requestError{err: fmt.Errorf("decode request body: %w", err)}
	}
	return nil
}

// decodeDraft normalizes a create payload into a Draft.
func decodeDraft(r *http.Request) (core.Draft, error) {
	var p transactionPayload
	if err := decodeBody(r, &p); err != nil {
		return core.Draft{}, err
	}
	return core.Normalize(p.Type, p.Category, p.Value, p.Date)
}

// decodePatch normalizes an update payload into a Patch, field by field.
func decodePatch(r *http.Request) (core.Patch, error) {
	var p patchPayload
	if err := decodeBody(r, &p); err != nil {
		return core.Patch{}, err
	}

	var patch core.Patch
	if p.Type != nil {
		typ, err := core.ParseTransactionType(*p.Type)
		if err != nil {
			return core.Patch{}, &core.ValidationError{Field: "type", Err: err}
		}
		patch.Type = &typ
	}
	if p.Value != nil {
		cents, err := core.ParseDecimalToCents(*p.Value)
		if err != nil {
			return core.Patch{}, &core.ValidationError{Field: "value", Err: err}
		}
		patch.Value = &core.Money{Cents: cents}
	}
	if p.Category != nil {
		cat, err := core.ParseCategory(*p.Category)
		if err != nil {
			return core.Patch{}, &core.ValidationError{Field: "category", Err: err}
		}
		patch.Category = &cat
	}
	if p.Date != nil {
		date, err := core.ParseDate(*p.Date)
		if err != nil {
			return core.Patch{}, &core.ValidationError{Field: "date", Err: err}
		}
		patch.Date = &date
	}
	return patch, nil
}

// readCSVBody accepts either a raw text/csv body or a JSON envelope with a
// "csv" field.
func readCSVBody(r *http.Request) (string, error) {
	contentType := r.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType == "application/json" {
		var envelope struct {
			CSV string `json:"csv"`
		}
		if err := decodeBody(r, &envelope); err != nil {
			return "", err
		}
		return envelope.CSV, nil
	}

	raw, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		return "", &requestError{err: fmt.Errorf("read request body: %w", err)}
	}
	return string(raw), nil
}

// parseCriteria builds filter criteria from query parameters. Every
// parameter is optional; a present but invalid one is rejected rather than
// silently ignored, so a typo never widens the result set.
func parseCriteria(query url.Values) (statement.Criteria, error) {
	var c statement.Criteria

	if v := strings.TrimSpace(query.Get("category")); v != "" {
		cat, err := core.ParseCategory(v)
		if err != nil {
			return statement.Criteria{}, &core.ValidationError{Field: "category", Err: err}
		}
		c.Category = &cat
	}
	if v := strings.TrimSpace(query.Get("type")); v != "" {
		typ, err := core.ParseTransactionType(v)
		if err != nil {
			return statement.Criteria{}, &core.ValidationError{Field: "type", Err: err}
		}
		c.Type = &typ
	}
	if v := strings.TrimSpace(query.Get("date_from")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return statement.Criteria{}, &core.ValidationError{Field: "date_from", Err: err}
		}
		c.DateFrom = &d
	}
	if v := strings.TrimSpace(query.Get("date_to")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return statement.Criteria{}, &core.ValidationError{Field: "date_to", Err: err}
		}
		c.DateTo = &d
	}
	if v := strings.TrimSpace(query.Get("value_min")); v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			return statement.Criteria{}, &core.ValidationError{Field: "value_min", Err: err}
		}
		c.ValueMin = &core.Money{Cents: cents}
	}
	if v := strings.TrimSpace(query.Get("value_max")); v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			return statement.Criteria{}, &core.ValidationError{Field: "value_max", Err: err}
		}
		c.ValueMax = &core.Money{Cents: cents}
	}

	if c.DateFrom != nil && c.DateTo != nil && c.DateTo.Before(*c.DateFrom) {
		return statement.Criteria{}, &core.ValidationError{
			Field: "date_to",
			Err:   errors.New("range end precedes its start"),
		}
	}

	return c, nil
}

// parseLimit reads the statement window size, falling back to the configured
// initial page size.
func parseLimit(query url.Values, fallback int) (int, error) {
	v := strings.TrimSpace(query.Get("limit"))
	if v == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(v)
	if err != nil || limit < 1 {
		return 0, &core.ValidationError{
			Field: "limit",
			Err:   fmt.Errorf("must be a positive integer, got %q", v),
		}
	}
	return limit, nil
}

// criteriaKey renders criteria as a stable cache key fragment.
func criteriaKey(c statement.Criteria) string {
	var b strings.Builder
	if c.Category != nil {
		fmt.Fprintf(&b, "cat=%s;", *c.Category)
	}
	if c.Type != nil {
		fmt.Fprintf(&b, "typ=%s;", *c.Type)
	}
	if c.DateFrom != nil {
		fmt.Fprintf(&b, "from=%s;", c.DateFrom.String())
	}
	if c.DateTo != nil {
		fmt.Fprintf(&b, "to=%s;", c.DateTo.String())
	}
	if c.ValueMin != nil {
		fmt.Fprintf(&b, "min=%d;", c.ValueMin.Cents)
	}
	if c.ValueMax != nil {
		fmt.Fprintf(&b, "max=%d;", c.ValueMax.Cents)
	}
	if b.Len() == 0 {
		return "all"
	}
	return b.String()
}
