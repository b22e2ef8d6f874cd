// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing amounts typed into the expense
// form and reading amounts back out of the store.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// maxAmountExponent bounds the power of ten an amount may carry. Larger
	// exponents would make rounding and formatting allocate huge integers.
	maxAmountExponent = 12
	// maxFractionDigits bounds the precision kept from user input and cells.
	maxFractionDigits = 8
)

var maxAmount = decimal.New(1, maxAmountExponent)

// inRange reports whether d is small enough to round, compare and format
// cheaply. The exponent is checked first: comparing against maxAmount
// rescales both operands.
func inRange(d decimal.Decimal) bool {
	exp := d.Exponent()
	if exp > maxAmountExponent || exp < -maxFractionDigits {
		return false
	}
	return d.Abs().LessThan(maxAmount)
}

// ParseAmount converts a decimal string typed by the user.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. An empty
// string is zero, matching the form's default. Negative values are rejected.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("")      -> 0, nil
//	ParseAmount("-1")    -> 0, ErrNegativeAmount
//	ParseAmount("1e400") -> 0, ErrInvalidAmount
//
// Amounts of 10^12 or more, or with more than eight fraction digits, are
// invalid.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil || !inRange(d) {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return d, nil
}

// CoerceAmount reads a stored amount cell. Anything that is not a number
// becomes an invalid NullDecimal instead of an error, so a bad cell only
// drops out of the sums. Out-of-range values count as not a number.
func CoerceAmount(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !inRange(d) {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// FormatAmount renders an amount with two fraction digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
