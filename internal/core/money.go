// Package core provides money parsing and handling utilities.
//
// Amounts are currency agnostic decimals. The dashboard never performs
// currency conversion, so Money is a thin wrapper that keeps the decimal
// exact across JSON, SQLite and PostgREST round trips.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Money struct {
	decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// MaxAmount bounds amounts accepted from entry forms.
var MaxAmount = NewMoney(decimal.New(1, 15))

// NewMoney wraps a decimal value.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

// MoneyFromInt is a convenience for whole amounts.
func MoneyFromInt(v int64) Money {
	return Money{Decimal: decimal.NewFromInt(v)}
}

// ParseMoney converts a decimal string to Money.
//
// It accepts a dot (12.34) or a single comma followed by one or two digits
// (12,34) as the decimal separator and keeps full precision. Anything that
// reads as digit grouping, such as "1,000" or "1,234.56", is rejected.
// Sign validation is left to callers so that current amounts may be zero.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if i := strings.IndexByte(s, ','); i >= 0 {
		frac := len(s) - i - 1
		if strings.Count(s, ",") > 1 || strings.Contains(s, ".") || frac < 1 || frac > 2 {
			return Money{}, ErrInvalidAmount
		}
		s = s[:i] + "." + s[i+1:]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return Money{Decimal: d}, nil
}

// Equal reports numeric equality (1.50 equals 1.5).
func (m Money) Equal(o Money) bool {
	return m.Decimal.Equal(o.Decimal)
}

// Cmp compares numerically.
func (m Money) Cmp(o Money) int {
	return m.Decimal.Cmp(o.Decimal)
}

// Percent returns round(m / of * 100), half away from zero. A zero or
// negative denominator yields ErrZeroTarget rather than an undefined value,
// and a result that does not fit in an int64 yields ErrPercentRange.
func (m Money) Percent(of Money) (int64, error) {
	if !of.IsPositive() {
		return 0, ErrZeroTarget
	}
	p := m.Mul(hundred).DivRound(of.Decimal, 0)
	if !p.BigInt().IsInt64() {
		return 0, ErrPercentRange
	}
	return p.IntPart(), nil
}
