package types

import (
	"github.com/esperanzalabs/esperanza/beacon-chain/casper"
)

// VoteRecord is a vote seen in a block together with the signature it was
// carried with. It is the unit persisted by the vote store.
type VoteRecord struct {
	Vote      casper.Vote
	Signature []byte
}

// SlashingConditionDetected pairs an incoming vote with the recorded vote it
// contradicts.
type SlashingConditionDetected struct {
	Kind      casper.SlashingKind
	Candidate *VoteRecord
	Existing  *VoteRecord
}
