// Package money holds the fixed-point amount helpers used by the ledger.
// Every amount is a decimal.Decimal with at most two fractional digits.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits carried by every amount.
const Scale = 2

var (
	ErrInvalidFormat = errors.New("invalid amount format")
	ErrTooPrecise    = errors.New("amount has more than two fractional digits")
)

// Zero is the zero amount.
var Zero = decimal.Zero

// Parse reads a decimal string such as "150.00" and rejects values that
// cannot be represented with two fractional digits.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	return Normalize(d)
}

// MustParse is Parse for constants and fixtures.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FromCents builds an amount from an integer number of minor units.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -Scale)
}

// HasValidScale reports whether d fits in two fractional digits without rounding.
func HasValidScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(Scale))
}

// Normalize rescales d to exactly two fractional digits.
func Normalize(d decimal.Decimal) (decimal.Decimal, error) {
	if !HasValidScale(d) {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrTooPrecise, d.String())
	}
	return d.Truncate(Scale), nil
}

// IsPositive reports d > 0.
func IsPositive(d decimal.Decimal) bool {
	return d.Sign() > 0
}

// Format renders d with exactly two fractional digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}

// Ptr returns a pointer to d, for nullable ceilings.
func Ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
