// Package primitives defines the scalar types shared by the finalization packages.
package primitives

import (
	"fmt"
	"math"
)

// Epoch is the index of a fixed-length span of blocks, the unit of voting.
type Epoch uint32

// Add increases the epoch by x, panicking on overflow.
func (e Epoch) Add(x uint32) Epoch {
	if uint64(e)+uint64(x) > math.MaxUint32 {
		panic(fmt.Sprintf("epoch overflow: %d + %d", e, x))
	}
	return e + Epoch(x)
}

// Sub decreases the epoch by x, panicking on underflow.
func (e Epoch) Sub(x uint32) Epoch {
	if uint32(e) < x {
		panic(fmt.Sprintf("epoch underflow: %d - %d", e, x))
	}
	return e - Epoch(x)
}

// SafeSub decreases the epoch by x, returning false instead of wrapping around.
func (e Epoch) SafeSub(x uint32) (Epoch, bool) {
	if uint32(e) < x {
		return 0, false
	}
	return e - Epoch(x), true
}
