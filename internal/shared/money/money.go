package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrTooPrecise    = errors.New("amount has more than 2 decimal places")
)

var hundred = decimal.NewFromInt(100)

// Parse converte um valor decimal ("12.5", "-3.00") em centavos
func Parse(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.Exponent() < -2 && !d.Equal(d.Round(2)) {
		return 0, fmt.Errorf("%w: %q", ErrTooPrecise, s)
	}
	cents := d.Mul(hundred)
	if !cents.IsInteger() || cents.GreaterThan(decimal.NewFromInt(1<<62)) || cents.LessThan(decimal.NewFromInt(-(1 << 62))) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return cents.IntPart(), nil
}

// Format devolve o valor em centavos como string com duas casas ("12.50")
func Format(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
