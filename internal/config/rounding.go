package config

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RoundingMode selects the tie-breaking rule for currency rounding.
type RoundingMode string

// Rounding mode constants.
const (
	RoundHalfUp   RoundingMode = "half_up"
	RoundHalfEven RoundingMode = "half_even"
)

// ParseRoundingMode validates a raw rounding mode string.
func ParseRoundingMode(s string) (RoundingMode, error) {
	switch RoundingMode(s) {
	case RoundHalfUp, RoundHalfEven:
		return RoundingMode(s), nil
	}
	return "", fmt.Errorf("unknown rounding mode %q", s)
}

// Rounding is an immutable currency rounding configuration. It is threaded
// through constructors instead of living in global state so concurrent tests
// can run with independent configurations.
type Rounding struct {
	Mode   RoundingMode
	Places int32
}

// DefaultRounding rounds to whole minor units, ties away from zero.
func DefaultRounding() Rounding {
	return Rounding{Mode: RoundHalfUp, Places: 0}
}

// Round applies the configured rounding to a decimal amount.
func (r Rounding) Round(d decimal.Decimal) decimal.Decimal {
	switch r.Mode {
	case RoundHalfEven:
		return d.RoundBank(r.Places)
	default:
		return d.Round(r.Places)
	}
}
