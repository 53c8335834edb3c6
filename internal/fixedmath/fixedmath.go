// Package fixedmath provides overflow-checked 256-bit integer arithmetic
// for reserve, share and price calculations. All helpers operate on
// holiman/uint256 values and never mutate their inputs.
package fixedmath

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	// ErrOverflow is returned when an operation exceeds 256 bits.
	ErrOverflow = errors.New("fixedmath: arithmetic overflow")
	// ErrUnderflow is returned when a subtraction would go negative.
	ErrUnderflow = errors.New("fixedmath: arithmetic underflow")
	// ErrDivisionByZero is returned when a divisor is zero.
	ErrDivisionByZero = errors.New("fixedmath: division by zero")
)

// WAD is the fixed-point price scale (1e18) used by the TWAP accumulators.
var WAD = uint256.NewInt(1_000_000_000_000_000_000)

// BpsScale represents 100% in basis points.
const BpsScale uint64 = 10_000

// BpsDivisor is BpsScale as a big word for fee arithmetic.
var BpsDivisor = uint256.NewInt(BpsScale)

// Add returns a+b or ErrOverflow.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Sub returns a-b or ErrUnderflow when b > a.
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	if b.Gt(a) {
		return nil, ErrUnderflow
	}
	return new(uint256.Int).Sub(a, b), nil
}

// Mul returns a*b or ErrOverflow.
func Mul(a, b *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Div returns a/b (floor) or ErrDivisionByZero.
func Div(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	return new(uint256.Int).Div(a, b), nil
}

// MulDiv returns floor(a*b/den) with a full 512-bit intermediate product.
func MulDiv(a, b, den *uint256.Int) (*uint256.Int, error) {
	if den.IsZero() {
		return nil, ErrDivisionByZero
	}
	z, overflow := new(uint256.Int).MulDivOverflow(a, b, den)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Sqrt returns the integer square root of a.
func Sqrt(a *uint256.Int) *uint256.Int {
	return new(uint256.Int).Sqrt(a)
}

// Min returns the smaller of a and b.
func Min(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int).Set(b)
}
