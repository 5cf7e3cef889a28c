package number

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Decimal parse decimal string, invalid input gives zero
func Decimal(v string) decimal.Decimal {
	d, _ := decimal.NewFromString(v)
	return d
}

// Ceil round d up to precision digits
func Ceil(d decimal.Decimal, precision int32) decimal.Decimal {
	return d.Shift(precision).Ceil().Shift(-precision)
}

// ToDecimal converts x to a decimal, shifted right by exp digits
func ToDecimal(x *uint256.Int, exp int32) decimal.Decimal {
	return decimal.NewFromBigInt(Copy(x).ToBig(), -exp)
}

// FromDecimal converts d shifted left by exp digits to an integer,
// the fractional remainder is truncated
func FromDecimal(d decimal.Decimal, exp int32) (*uint256.Int, error) {
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative value %s", ErrUnderflow, d)
	}

	v, overflow := uint256.FromBig(d.Shift(exp).Truncate(0).BigInt())
	if overflow {
		return nil, ErrOverflow
	}

	return v, nil
}

// MustFromDecimal is FromDecimal that panics on error
func MustFromDecimal(d decimal.Decimal, exp int32) *uint256.Int {
	v, err := FromDecimal(d, exp)
	if err != nil {
		panic(err)
	}

	return v
}

// Parse parses a base 10 integer string
func Parse(s string) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}

	return FromDecimal(d, 0)
}
