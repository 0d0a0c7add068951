package casper

import "sync"

// fieldIndex names the map fields shared between copies of a state.
type fieldIndex int

const (
	validatorsField fieldIndex = iota
	checkpointsField
	dynastyDeltasField
	depositScaleFactorField
	totalSlashedField
	dynastyStartEpochField
	numFields
)

// reference counts the states sharing one field value.
type reference struct {
	refs uint
	lock sync.RWMutex
}

func newRef(refs uint) *reference {
	return &reference{refs: refs}
}

func (r *reference) Refs() uint {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.refs
}

func (r *reference) AddRef() {
	r.lock.Lock()
	r.refs++
	r.lock.Unlock()
}

func (r *reference) MinusRef() {
	r.lock.Lock()
	// Do not reduce further if object already has no reference.
	if r.refs > 0 {
		r.refs--
	}
	r.lock.Unlock()
}
