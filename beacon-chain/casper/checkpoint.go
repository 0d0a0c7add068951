package casper

import (
	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/ethereum/go-ethereum/common"
)

// Checkpoint holds the voting progress of one epoch. Vote tallies are keyed
// by source epoch and split by the dynasty the voting deposits belong to.
type Checkpoint struct {
	Justified           bool
	Finalized           bool
	CurDynastyDeposits  uint64
	PrevDynastyDeposits uint64
	CurDynastyVotes     map[primitives.Epoch]uint64
	PrevDynastyVotes    map[primitives.Epoch]uint64
	VoteSet             map[common.Address]struct{}
}

func newCheckpoint() *Checkpoint {
	return &Checkpoint{
		CurDynastyVotes:  make(map[primitives.Epoch]uint64),
		PrevDynastyVotes: make(map[primitives.Epoch]uint64),
		VoteSet:          make(map[common.Address]struct{}),
	}
}

// HasVoted reports whether addr already voted for this checkpoint.
func (c *Checkpoint) HasVoted(addr common.Address) bool {
	_, ok := c.VoteSet[addr]
	return ok
}

// Copy returns a deep copy of the checkpoint.
func (c *Checkpoint) Copy() *Checkpoint {
	cp := &Checkpoint{
		Justified:           c.Justified,
		Finalized:           c.Finalized,
		CurDynastyDeposits:  c.CurDynastyDeposits,
		PrevDynastyDeposits: c.PrevDynastyDeposits,
		CurDynastyVotes:     make(map[primitives.Epoch]uint64, len(c.CurDynastyVotes)),
		PrevDynastyVotes:    make(map[primitives.Epoch]uint64, len(c.PrevDynastyVotes)),
		VoteSet:             make(map[common.Address]struct{}, len(c.VoteSet)),
	}
	for e, v := range c.CurDynastyVotes {
		cp.CurDynastyVotes[e] = v
	}
	for e, v := range c.PrevDynastyVotes {
		cp.PrevDynastyVotes[e] = v
	}
	for a := range c.VoteSet {
		cp.VoteSet[a] = struct{}{}
	}
	return cp
}
