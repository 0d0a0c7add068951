package casper

import (
	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/ethereum/go-ethereum/common"
)

// Validator is the record of a finalizer. Deposit is scaled by the deposit
// scale factor of the epoch it was made in.
type Validator struct {
	Address             common.Address
	Deposit             uint64
	StartDynasty        primitives.Dynasty
	EndDynasty          primitives.Dynasty
	Slashed             bool
	Withdrawn           bool
	DepositsAtLogout    uint64
	LastTransactionHash common.Hash
}

// IsInDynasty reports whether the validator belongs to the validator set of d.
func (v *Validator) IsInDynasty(d primitives.Dynasty) bool {
	return v.StartDynasty <= d && d < v.EndDynasty
}

// HasLoggedOut reports whether a logout or slash scheduled the validator's end.
func (v *Validator) HasLoggedOut() bool {
	return v.EndDynasty != primitives.MaxDynasty
}

// Copy returns a copy of the record.
func (v *Validator) Copy() *Validator {
	cp := *v
	return &cp
}
