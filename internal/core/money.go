// Package core holds the account domain: users, transactions, money and
// the validation rules shared by every storage backend.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount caps a single transaction at ten million currency units.
var MaxAmount = Money{Cents: 1_000_000_000}

type Money struct {
	Cents int64
}

func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > MaxAmount.Cents {
		return ErrInvalidAmount
	}
	return nil
}

// Units returns the amount in currency units for display and for the
// suggestion engine. Use Cents for arithmetic.
func (m Money) Units() float64 {
	f, _ := decimal.New(m.Cents, -2).Float64()
	return f
}

// String formats the amount with two decimals, e.g. "1000.00".
func (m Money) String() string {
	return decimal.New(m.Cents, -2).StringFixed(2)
}

// ParseAmount converts a user supplied decimal string into Money.
//
// Both "12.34" and "12,34" are accepted. More than two fractional digits,
// zero, negative and oversized values are rejected.
//
//	ParseAmount("12.34")  -> 1234 cents
//	ParseAmount("12,5")   -> 1250 cents
//	ParseAmount("12.345") -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" || strings.HasPrefix(s, "+") || strings.ContainsAny(s, "eE") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if !d.Equal(d.Truncate(2)) {
		return Money{}, ErrInvalidAmount
	}
	if !d.IsPositive() || d.GreaterThan(decimal.New(MaxAmount.Cents, -2)) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: d.Shift(2).IntPart()}, nil
}

// MoneyFromUnits converts a currency-unit amount (as produced by the
// suggestion engine) to cents, rounding half away from zero.
func MoneyFromUnits(f float64) Money {
	return Money{Cents: decimal.NewFromFloat(f).Shift(2).Round(0).IntPart()}
}
