// Package core provides money parsing and handling utilities.
//
// Amounts are shopspring decimals in the domain and integer minor units
// (hundredths) at rest, so every supported currency shares a scale of 2.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// MinorScale is the number of decimal places stored for every currency.
const MinorScale = 2

var (
	ErrInvalidAmount = errors.New("invalid amount")

	// 10 significant digits with 2 decimals, as in a DECIMAL(10,2) column.
	maxAmount = decimal.New(1, 8)
)

// ParseAmount parses a signed decimal string. Both dot and comma are accepted
// as the decimal separator.
//
//	ParseAmount("-150.50") -> -150.5
//	ParseAmount("12,34")   -> 12.34
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ValidateAmount checks scale and magnitude. Zero is rejected unless allowZero.
func ValidateAmount(d decimal.Decimal, allowZero bool) error {
	if !allowZero && d.IsZero() {
		return errors.New("must not be zero")
	}
	if !d.Equal(d.Round(MinorScale)) {
		return errors.New("must have at most 2 decimal places")
	}
	if d.Abs().GreaterThanOrEqual(maxAmount) {
		return errors.New("must have at most 10 digits")
	}
	return nil
}

// ToMinor converts a validated amount to hundredths.
func ToMinor(d decimal.Decimal) int64 {
	return d.Round(MinorScale).Shift(MinorScale).IntPart()
}

// FromMinor converts hundredths back to a decimal amount.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -MinorScale)
}

// FormatAmount renders an amount with exactly two decimals, e.g. "5807.50".
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(MinorScale)
}
