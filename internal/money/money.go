// Package money holds the minor-unit amount type shared by the ledger and the
// payment gateway. Major units (pesos) only exist at the HTTP boundary and are
// converted here, once.
package money

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Minor is an amount in the smallest currency unit (centavos for PHP).
type Minor int64

const minorPerMajor = 100

var (
	ErrNotPositive = errors.New("amount must be positive")
	ErrPrecision   = errors.New("amount has more than two decimal places")
	ErrOutOfRange  = errors.New("amount out of range")
)

// FromMajor converts a major-unit amount (e.g. 2799 pesos) to minor units
// (279900 centavos).
func FromMajor(amount float64) (Minor, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, ErrOutOfRange
	}
	if amount <= 0 {
		return 0, ErrNotPositive
	}
	scaled := amount * minorPerMajor
	rounded := math.Round(scaled)
	if math.Abs(scaled-rounded) > 1e-6 {
		return 0, ErrPrecision
	}
	if rounded >= math.MaxInt64 {
		return 0, ErrOutOfRange
	}
	return Minor(rounded), nil
}

// ParseMajor parses a decimal string such as "1399.50" as major units.
func ParseMajor(s string) (Minor, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromMajor(f)
}

// Times multiplies a unit price by a count, e.g. a nightly rate by nights.
func (m Minor) Times(n int) (Minor, error) {
	if n < 0 {
		return 0, ErrOutOfRange
	}
	if n != 0 && int64(m) > math.MaxInt64/int64(n) {
		return 0, ErrOutOfRange
	}
	return m * Minor(n), nil
}

// Major renders the amount in major units with two decimals.
func (m Minor) Major() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/minorPerMajor, v%minorPerMajor)
}
