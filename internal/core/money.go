// Package core provides money handling for the ledger.
//
// Amounts are arbitrary-precision decimals so sums never drift the way
// float64 totals do. They travel as JSON numbers and are stored as text.
package core

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Accepted amounts stay within float64 range: at most 34 significant digits
// (113 coefficient bits), magnitude below 1e308 and no finer than 1e-324.
const (
	maxCoefficientBits = 113
	maxMagnitudeDigits = 308
	minExponent        = -324
)

// ErrAmountOutOfRange is returned for amounts too large or too precise to accept.
var ErrAmountOutOfRange = errors.New("amount out of range")

// Amount is a decimal money value.
type Amount struct {
	decimal.Decimal
}

// Zero is the additive identity.
var Zero = Amount{Decimal: decimal.Zero}

// ParseAmount parses a decimal string such as "12.34" or "-5".
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Decimal: d}, nil
}

// MustAmount is ParseAmount for constants and tests; it panics on bad input.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{Decimal: a.Decimal.Add(b.Decimal)}
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount {
	return Amount{Decimal: a.Decimal.Sub(b.Decimal)}
}

// Equal compares by value, so 50 and 50.0 are equal.
func (a Amount) Equal(b Amount) bool {
	return a.Decimal.Equal(b.Decimal)
}

// CheckRange reports ErrAmountOutOfRange when a does not fit the accepted
// range. It inspects only the coefficient size and exponent, never the
// expanded digits.
func (a Amount) CheckRange() error {
	if a.Decimal.Coefficient().BitLen() > maxCoefficientBits {
		return ErrAmountOutOfRange
	}
	exp := int(a.Decimal.Exponent())
	if exp < minExponent || a.Decimal.NumDigits()+exp > maxMagnitudeDigits {
		return ErrAmountOutOfRange
	}
	return nil
}

// UnmarshalJSON accepts a JSON number or numeric string and rejects
// out-of-range values before they are ever formatted.
func (a *Amount) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	if err := (Amount{Decimal: d}).CheckRange(); err != nil {
		return err
	}
	a.Decimal = d
	return nil
}

// MarshalJSON emits the amount as a bare JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}
