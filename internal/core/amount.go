// Package core provides the ledger domain types.
//
// This file contains parsing and formatting of spend amounts. Amounts are
// kept as decimals so that a cell read from the sheet can be written back
// with exactly the same digits.
package core

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Amount is a non-negative spend value. The zero Amount is "missing": a
// placeholder for a day that has not been filled in yet.
type Amount struct {
	Value decimal.Decimal
	Valid bool
}

// NewAmount wraps a decimal as a present amount.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Value: d, Valid: true}
}

// AmountFromFloat is a convenience for tests and callers holding floats.
func AmountFromFloat(f float64) Amount {
	return NewAmount(decimal.NewFromFloat(f))
}

// ParseAmount converts a cell or user input into an Amount.
//
// It accepts a leading or trailing currency symbol (£12.50, 12,50 €),
// both dot and comma decimal separators, and comma thousands separators
// when a dot is also present (£1,234.56). Negative values, exponents and
// anything that is not a plain decimal are rejected.
//
// Examples:
//
//	ParseAmount("12.34")   -> 12.34
//	ParseAmount("£10.00")  -> 10.00
//	ParseAmount("12,5")    -> 12.5
//	ParseAmount("1,200")   -> ErrInvalidAmount (thousands or decimal?)
//	ParseAmount("-3")      -> ErrNegativeAmount
func ParseAmount(s string) (Amount, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, ErrInvalidAmount
	}
	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.Is(unicode.Sc, r) || unicode.IsSpace(r)
	})
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}
	if negative {
		return Amount{}, fmt.Errorf("%w: %q", ErrNegativeAmount, raw)
	}

	s, ok := normalizeSeparators(s)
	if !ok {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" && fracPart == "" {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	for _, r := range intPart + fracPart {
		if r < '0' || r > '9' {
			return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
		}
	}
	if intPart == "" {
		intPart = "0"
	}
	normalized := intPart
	if fracPart != "" {
		normalized += "." + fracPart
	}

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	return NewAmount(d), nil
}

// normalizeSeparators rewrites s to use '.' as its only separator. With a
// dot present, commas must group the integer part in threes. Without one, a
// single comma followed by one or two digits is a decimal comma; anything
// else ("1,200") is ambiguous and rejected.
func normalizeSeparators(s string) (string, bool) {
	if !strings.Contains(s, ",") {
		return s, true
	}
	if whole, frac, found := strings.Cut(s, "."); found {
		groups := strings.Split(whole, ",")
		if len(groups[0]) == 0 || len(groups[0]) > 3 {
			return "", false
		}
		for _, g := range groups[1:] {
			if len(g) != 3 {
				return "", false
			}
		}
		return strings.Join(groups, "") + "." + frac, true
	}
	whole, frac, _ := strings.Cut(s, ",")
	if len(frac) < 1 || len(frac) > 2 || strings.Contains(frac, ",") {
		return "", false
	}
	return whole + "." + frac, true
}

// String returns the plain decimal form used in the sheet, keeping the
// number of fractional digits the amount was parsed with. A missing amount
// formats as the empty string.
func (a Amount) String() string {
	if !a.Valid {
		return ""
	}
	if exp := a.Value.Exponent(); exp < 0 {
		return a.Value.StringFixed(-exp)
	}
	return a.Value.String()
}

// IsMissing reports whether the amount is a placeholder.
func (a Amount) IsMissing() bool {
	return !a.Valid
}
