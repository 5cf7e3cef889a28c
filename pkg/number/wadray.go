package number

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

var (
	// ErrArithmetic is the root of every fixed point failure
	ErrArithmetic = errors.New("arithmetic error")
	// ErrOverflow result does not fit in 256 bits
	ErrOverflow = fmt.Errorf("%w: overflow", ErrArithmetic)
	// ErrUnderflow subtraction below zero
	ErrUnderflow = fmt.Errorf("%w: underflow", ErrArithmetic)
	// ErrDivisionByZero division by zero
	ErrDivisionByZero = fmt.Errorf("%w: division by zero", ErrArithmetic)
)

var (
	// Wad 1e18, used for health factors
	Wad = uint256.MustFromDecimal("1000000000000000000")
	// Ray 1e27, used for indexes and ratios
	Ray = uint256.MustFromDecimal("1000000000000000000000000000")
	// WadToRayRatio 1e9
	WadToRayRatio = uint256.NewInt(1_000_000_000)

	// PercentageFactor 100.00% in basis points
	PercentageFactor = uint256.NewInt(10_000)
)

// MaxBasisPoints the upper bound of every basis points parameter
const MaxBasisPoints = 10_000

// Zero returns a fresh zero value
func Zero() *uint256.Int {
	return new(uint256.Int)
}

// New returns a fresh value holding v
func New(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// Copy returns a copy of x, nil is treated as zero
func Copy(x *uint256.Int) *uint256.Int {
	if x == nil {
		return Zero()
	}

	return new(uint256.Int).Set(x)
}

// IsZero reports whether x is nil or zero
func IsZero(x *uint256.Int) bool {
	return x == nil || x.IsZero()
}

// Pow10 returns 10^n
func Pow10(n uint8) *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(n)))
}

// Add returns a + b, panics on overflow
func Add(a, b *uint256.Int) *uint256.Int {
	z, overflow := new(uint256.Int).AddOverflow(Copy(a), Copy(b))
	if overflow {
		panic(ErrOverflow)
	}

	return z
}

// Sub returns a - b, panics on underflow
func Sub(a, b *uint256.Int) *uint256.Int {
	z, underflow := new(uint256.Int).SubOverflow(Copy(a), Copy(b))
	if underflow {
		panic(ErrUnderflow)
	}

	return z
}

// ZeroFloorSub returns max(a - b, 0)
func ZeroFloorSub(a, b *uint256.Int) *uint256.Int {
	a, b = Copy(a), Copy(b)
	if a.Cmp(b) <= 0 {
		return Zero()
	}

	return new(uint256.Int).Sub(a, b)
}

// Mul returns a * b, panics on overflow
func Mul(a, b *uint256.Int) *uint256.Int {
	z, overflow := new(uint256.Int).MulOverflow(Copy(a), Copy(b))
	if overflow {
		panic(ErrOverflow)
	}

	return z
}

// Min returns the smaller of a and b
func Min(a, b *uint256.Int) *uint256.Int {
	a, b = Copy(a), Copy(b)
	if a.Cmp(b) <= 0 {
		return a
	}

	return b
}

// Max returns the larger of a and b
func Max(a, b *uint256.Int) *uint256.Int {
	a, b = Copy(a), Copy(b)
	if a.Cmp(b) >= 0 {
		return a
	}

	return b
}

// DivUp returns ceil(a / b)
func DivUp(a, b *uint256.Int) *uint256.Int {
	return MulDivUp(a, uint256.NewInt(1), b)
}

// MulDiv returns floor(a * b / d) computed with a 512 bit intermediate
func MulDiv(a, b, d *uint256.Int) *uint256.Int {
	q, _ := mulDiv(a, b, d)
	return q
}

// MulDivUp returns ceil(a * b / d)
func MulDivUp(a, b, d *uint256.Int) *uint256.Int {
	q, r := mulDiv(a, b, d)
	if !r.IsZero() {
		q = Add(q, uint256.NewInt(1))
	}

	return q
}

// MulDivHalfUp returns a * b / d rounded half up
func MulDivHalfUp(a, b, d *uint256.Int) *uint256.Int {
	q, r := mulDiv(a, b, d)
	half := new(uint256.Int).Rsh(d, 1)
	// round up when r >= d - floor(d/2)
	if r.Cmp(new(uint256.Int).Sub(d, half)) >= 0 {
		q = Add(q, uint256.NewInt(1))
	}

	return q
}

func mulDiv(a, b, d *uint256.Int) (*uint256.Int, *uint256.Int) {
	if IsZero(d) {
		panic(ErrDivisionByZero)
	}

	a, b = Copy(a), Copy(b)
	q, overflow := new(uint256.Int).MulDivOverflow(a, b, d)
	if overflow {
		panic(ErrOverflow)
	}

	r := new(uint256.Int).MulMod(a, b, d)
	return q, r
}

// RayMul returns a * b / RAY rounded half up
func RayMul(a, b *uint256.Int) *uint256.Int {
	return MulDivHalfUp(a, b, Ray)
}

// RayMulDown returns a * b / RAY rounded down
func RayMulDown(a, b *uint256.Int) *uint256.Int {
	return MulDiv(a, b, Ray)
}

// RayMulUp returns a * b / RAY rounded up
func RayMulUp(a, b *uint256.Int) *uint256.Int {
	return MulDivUp(a, b, Ray)
}

// RayDiv returns a * RAY / b rounded half up
func RayDiv(a, b *uint256.Int) *uint256.Int {
	return MulDivHalfUp(a, Ray, b)
}

// RayDivDown returns a * RAY / b rounded down
func RayDivDown(a, b *uint256.Int) *uint256.Int {
	return MulDiv(a, Ray, b)
}

// RayDivUp returns a * RAY / b rounded up
func RayDivUp(a, b *uint256.Int) *uint256.Int {
	return MulDivUp(a, Ray, b)
}

// WadMul returns a * b / WAD rounded half up
func WadMul(a, b *uint256.Int) *uint256.Int {
	return MulDivHalfUp(a, b, Wad)
}

// WadDiv returns a * WAD / b rounded half up
func WadDiv(a, b *uint256.Int) *uint256.Int {
	return MulDivHalfUp(a, Wad, b)
}

// PercentMul returns x * bps / 10000 rounded half up
func PercentMul(x *uint256.Int, bps uint64) *uint256.Int {
	return MulDivHalfUp(x, uint256.NewInt(bps), PercentageFactor)
}

// PercentMulDown returns x * bps / 10000 rounded down
func PercentMulDown(x *uint256.Int, bps uint64) *uint256.Int {
	return MulDiv(x, uint256.NewInt(bps), PercentageFactor)
}

// PercentDiv returns x * 10000 / bps rounded half up
func PercentDiv(x *uint256.Int, bps uint64) *uint256.Int {
	return MulDivHalfUp(x, PercentageFactor, uint256.NewInt(bps))
}

// WeightedAvg returns (x * (10000 - w) + y * w) / 10000 rounded half up
func WeightedAvg(x, y *uint256.Int, w uint64) *uint256.Int {
	if w > MaxBasisPoints {
		panic(ErrOverflow)
	}

	sum := Add(
		Mul(x, uint256.NewInt(MaxBasisPoints-w)),
		Mul(y, uint256.NewInt(w)),
	)

	return MulDivHalfUp(sum, uint256.NewInt(1), PercentageFactor)
}

// WadToRay converts a wad value to a ray value
func WadToRay(x *uint256.Int) *uint256.Int {
	return Mul(x, WadToRayRatio)
}
