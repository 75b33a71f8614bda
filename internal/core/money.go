// Package core holds the transaction domain: money, dates, the closed
// category set and the shared normalization rules used by both the manual
// entry path and the CSV import path.
package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Money is a currency amount in cents (BRL centavos). Direction is carried
// by the transaction type, so ledger amounts are never negative; signed
// cents appear only in derived balances.
type Money struct {
	Cents int64
}

var ErrInvalidAmount = errors.New("invalid amount")

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Reais returns the amount as a float64 for display only. Calculations stay
// in cents.
func (m Money) Reais() float64 {
	return float64(m.Cents) / 100.0
}

// Decimal renders the amount as a plain dot-decimal string with two
// fractional digits ("1500.00"), the shape CSV files and the API use.
func (m Money) Decimal() string {
	sign := ""
	c := m.Cents
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// FormatBRL renders cents as pt-BR currency text: "R$ 1.500,00". Negative
// amounts keep the sign in front ("-R$ 50,00").
func FormatBRL(m Money) string {
	c := m.Cents
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	whole := strconv.FormatInt(c/100, 10)

	var grouped strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}

	return fmt.Sprintf("%sR$ %s,%02d", sign, grouped.String(), c%100)
}

// ParseDecimalToCents converts a decimal string to cents with half-up
// rounding on the third fractional digit. Both comma and dot are accepted
// as the fractional separator, and pt-BR or en-US thousands grouping is
// stripped ("1.500,00", "1,500.00" and "1500.00" all parse to 150000).
// Signed, zero and malformed inputs are rejected.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}

	intPart, fracPart, err := splitDecimal(s)
	if err != nil {
		return 0, err
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}

	// First two fractional digits, half-up on the third.
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}

	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// splitDecimal separates the integer and fractional digits, resolving which
// of '.' and ',' is the fractional separator. When both appear the rightmost
// one wins and the other is treated as grouping; a lone separator followed
// by exactly three-digit groups is grouping ("1.500" -> 1500).
func splitDecimal(s string) (intPart, fracPart string, err error) {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		sep := lastDot
		group := ","
		if lastComma > lastDot {
			sep = lastComma
			group = "."
		}
		intRaw := s[:sep]
		if strings.Contains(intRaw, group) && !isGrouped(intRaw, group) {
			return "", "", ErrInvalidAmount
		}
		intPart = strings.ReplaceAll(intRaw, group, "")
		fracPart = s[sep+1:]
		if strings.ContainsAny(fracPart, ".,") {
			return "", "", ErrInvalidAmount
		}
	case lastDot >= 0 || lastComma >= 0:
		sep := "."
		if lastComma >= 0 {
			sep = ","
		}
		if isGrouped(s, sep) {
			intPart = strings.ReplaceAll(s, sep, "")
			break
		}
		parts := strings.Split(s, sep)
		if len(parts) != 2 {
			return "", "", ErrInvalidAmount
		}
		intPart, fracPart = parts[0], parts[1]
	default:
		intPart = s
	}

	if intPart == "" {
		intPart = "0"
	}
	return intPart, fracPart, nil
}

// isGrouped reports whether every separator-delimited group after the first
// has exactly three digits, i.e. the separator is thousands grouping.
func isGrouped(s, sep string) bool {
	parts := strings.Split(s, sep)
	if len(parts) < 2 || parts[0] == "" || len(parts[0]) > 3 {
		return false
	}
	if strings.HasPrefix(parts[0], "0") {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return true
}
