package ufp64

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversions(t *testing.T) {
	assert.Equal(t, UFP64(700_000_000), ToUFP64(7))
	assert.Equal(t, uint64(7), Trunc(ToUFP64(7)+Unit/2))
	assert.Equal(t, "7.00000000", ToUFP64(7).String())
	assert.Equal(t, "0.00000020", Div2Uint(2, 10_000_000).String())
}

func TestArithmetic(t *testing.T) {
	half := Div2Uint(1, 2)
	tests := []struct {
		name string
		got  UFP64
		want UFP64
	}{
		{name: "mul", got: Mul(ToUFP64(3), half), want: 150_000_000},
		{name: "div", got: Div(ToUFP64(1), ToUFP64(3)), want: 33_333_333},
		{name: "add", got: Add(half, half), want: Unit},
		{name: "sub", got: Sub(Unit, half), want: half},
		{name: "mul by uint", got: MulByUint(half, 5), want: 250_000_000},
		{name: "div by uint", got: DivByUint(Unit, 4), want: 25_000_000},
		{name: "min", got: Min(half, Unit), want: half},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestIntegerResults(t *testing.T) {
	assert.Equal(t, uint64(1_500), MulToUint(Div2Uint(3, 2), 1_000))
	assert.Equal(t, uint64(666), DivToUint(1_000, Div2Uint(3, 2)))
}

func TestWideIntermediates(t *testing.T) {
	// The product overflows 64 bits before the division brings it back.
	deposit := uint64(1_000_000_000_000)
	assert.Equal(t, deposit, MulToUint(Unit, deposit))
	assert.Equal(t, deposit, DivToUint(deposit, Unit))
}

func TestSqrtUint(t *testing.T) {
	assert.Equal(t, ToUFP64(100), SqrtUint(10_000))
	assert.Equal(t, UFP64(141_421_356), SqrtUint(2))
	assert.Equal(t, UFP64(0), SqrtUint(0))
	// Exact floor, no float rounding on the way.
	assert.Equal(t, UFP64(100_000_000_000_049), SqrtUint(1_000_000_000_001))
}

func TestPanics(t *testing.T) {
	require.Panics(t, func() { Div(Unit, 0) })
	require.Panics(t, func() { Sub(0, Unit) })
	require.Panics(t, func() { ToUFP64(math.MaxUint64) })
}
