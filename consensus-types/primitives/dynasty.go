package primitives

import (
	"fmt"
	"math"
)

// Dynasty is a span of epochs during which the active validator set is fixed.
type Dynasty uint32

// MaxDynasty marks a validator that has not logged out.
const MaxDynasty = Dynasty(math.MaxUint32)

// Add increases the dynasty by x, panicking on overflow.
func (d Dynasty) Add(x uint32) Dynasty {
	if uint64(d)+uint64(x) > math.MaxUint32 {
		panic(fmt.Sprintf("dynasty overflow: %d + %d", d, x))
	}
	return d + Dynasty(x)
}
