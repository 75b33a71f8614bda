package google

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"quota exceeded", &googleapi.Error{Code: 429}, true},
		{"wrapped quota exceeded", fmt.Errorf("append: %w", &googleapi.Error{Code: 429}), true},
		{"server error", &googleapi.Error{Code: 500}, false},
		{"plain error", errors.New("connection refused"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRateLimited(tt.err); got != tt.want {
				t.Errorf("isRateLimited(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestCentsToDecimal(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{150000, "1500.00"},
		{20050, "200.50"},
		{5, "0.05"},
		{100, "1.00"},
	}
	for _, tt := range tests {
		if got := centsToDecimal(tt.cents); got != tt.want {
			t.Errorf("centsToDecimal(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestIndexOfID(t *testing.T) {
	values := [][]any{
		{"id"},
		{"tx-1"},
		{},
		{" tx-2 "},
	}
	if got := indexOfID(values, "tx-1"); got != 1 {
		t.Errorf("indexOfID(tx-1) = %d, want 1", got)
	}
	if got := indexOfID(values, "tx-2"); got != 3 {
		t.Errorf("indexOfID(tx-2) = %d, want 3", got)
	}
	if got := indexOfID(values, "tx-9"); got != -1 {
		t.Errorf("indexOfID(tx-9) = %d, want -1", got)
	}
}

func TestMaterialize(t *testing.T) {
	t.Run("inline wins", func(t *testing.T) {
		data, err := materialize(`{"a":1}`, "/nonexistent")
		if err != nil {
			t.Fatalf("materialize() error = %v", err)
		}
		if string(data) != `{"a":1}` {
			t.Errorf("materialize() = %q", data)
		}
	})
	t.Run("neither configured", func(t *testing.T) {
		if _, err := materialize("", ""); err == nil {
			t.Error("expected error when nothing is configured")
		}
	})
	t.Run("missing file", func(t *testing.T) {
		if _, err := materialize("", "/nonexistent/creds.json"); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
