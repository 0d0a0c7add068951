// Package ufp64 implements the unsigned 64-bit fixed point numbers used by
// the finalization reward math. Values carry eight decimal places and every
// product or quotient is computed on a 256-bit intermediate and floored, so
// results are identical on every node.
package ufp64

import (
	"fmt"

	"github.com/holiman/uint256"
)

// UFP64 is an unsigned fixed point number scaled by Unit.
type UFP64 uint64

// Unit is the fixed point representation of 1.
const Unit UFP64 = 100_000_000

// Decimals is the number of decimal places an UFP64 carries.
const Decimals = 8

func wide(x uint64) *uint256.Int {
	return new(uint256.Int).SetUint64(x)
}

func narrow(z *uint256.Int) uint64 {
	if !z.IsUint64() {
		panic(fmt.Sprintf("ufp64: result %s does not fit in 64 bits", z.Hex()))
	}
	return z.Uint64()
}

// mulDiv returns floor(a*b/c).
func mulDiv(a, b, c uint64) uint64 {
	if c == 0 {
		panic("ufp64: division by zero")
	}
	z := new(uint256.Int).Mul(wide(a), wide(b))
	return narrow(z.Div(z, wide(c)))
}

// ToUFP64 converts an integer into fixed point.
func ToUFP64(n uint64) UFP64 {
	return UFP64(mulDiv(n, uint64(Unit), 1))
}

// Add returns x + y.
func Add(x, y UFP64) UFP64 {
	z := new(uint256.Int).Add(wide(uint64(x)), wide(uint64(y)))
	return UFP64(narrow(z))
}

// Sub returns x - y. It panics when y > x.
func Sub(x, y UFP64) UFP64 {
	if y > x {
		panic(fmt.Sprintf("ufp64: %s - %s underflows", x, y))
	}
	return x - y
}

// Mul returns x * y.
func Mul(x, y UFP64) UFP64 {
	return UFP64(mulDiv(uint64(x), uint64(y), uint64(Unit)))
}

// Div returns x / y.
func Div(x, y UFP64) UFP64 {
	return UFP64(mulDiv(uint64(x), uint64(Unit), uint64(y)))
}

// MulByUint returns x * n in fixed point.
func MulByUint(x UFP64, n uint64) UFP64 {
	return UFP64(mulDiv(uint64(x), n, 1))
}

// DivByUint returns x / n in fixed point.
func DivByUint(x UFP64, n uint64) UFP64 {
	return UFP64(mulDiv(uint64(x), 1, n))
}

// MulToUint multiplies x by the integer n and truncates the result to an integer.
func MulToUint(x UFP64, n uint64) uint64 {
	return mulDiv(uint64(x), n, uint64(Unit))
}

// DivToUint divides the integer n by x and truncates the result to an integer.
func DivToUint(n uint64, x UFP64) uint64 {
	return mulDiv(n, uint64(Unit), uint64(x))
}

// Div2Uint divides two integers yielding a fixed point result.
func Div2Uint(n, d uint64) UFP64 {
	return UFP64(mulDiv(n, uint64(Unit), d))
}

// SqrtUint returns the square root of the integer n in fixed point, floored
// at the last decimal place.
func SqrtUint(n uint64) UFP64 {
	s := wide(uint64(Unit))
	z := new(uint256.Int).Mul(wide(n), s)
	z.Mul(z, s)
	return UFP64(narrow(isqrt(z)))
}

// Min returns the smaller of x and y.
func Min(x, y UFP64) UFP64 {
	if x < y {
		return x
	}
	return y
}

// Trunc drops the fractional part of x.
func Trunc(x UFP64) uint64 {
	return uint64(x / Unit)
}

// String renders x with all of its decimal places.
func (x UFP64) String() string {
	return fmt.Sprintf("%d.%08d", uint64(x/Unit), uint64(x%Unit))
}

// isqrt is the integer square root by Newton's iteration.
func isqrt(n *uint256.Int) *uint256.Int {
	if n.IsZero() {
		return new(uint256.Int)
	}
	x := new(uint256.Int).Set(n)
	y := new(uint256.Int).AddUint64(n, 1)
	y.Rsh(y, 1)
	for y.Lt(x) {
		x.Set(y)
		y.Div(n, x)
		y.Add(y, x)
		y.Rsh(y, 1)
	}
	return x
}
