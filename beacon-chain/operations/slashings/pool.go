// Package slashings keeps slashing evidence found by the vote recorder until a
// proposer includes it in a block.
package slashings

import (
	"bytes"
	"sort"
	"sync"

	"github.com/esperanzalabs/esperanza/beacon-chain/casper"
	slashertypes "github.com/esperanzalabs/esperanza/beacon-chain/slasher/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// MaxSlashingsPerBlock bounds PendingSlashings when not asked for all of them.
const MaxSlashingsPerBlock = 16

// PoolManager maintains pending and included vote slashings.
type PoolManager interface {
	PendingSlashings(noLimit bool) []*slashertypes.SlashingConditionDetected
	InsertSlashing(state *casper.FinalizationState, slashing *slashertypes.SlashingConditionDetected) error
	MarkIncluded(validator common.Address)
}

// Pool is a concrete implementation of PoolManager. Pending entries are kept
// sorted by validator address with at most one entry per validator.
type Pool struct {
	lock     sync.RWMutex
	pending  []*slashertypes.SlashingConditionDetected
	included map[common.Address]bool
}

// NewPool returns an initialized pool.
func NewPool() *Pool {
	return &Pool{
		pending:  make([]*slashertypes.SlashingConditionDetected, 0),
		included: make(map[common.Address]bool),
	}
}

// PendingSlashings returns the pending evidence. Without noLimit it returns at
// most MaxSlashingsPerBlock entries.
func (p *Pool) PendingSlashings(noLimit bool) []*slashertypes.SlashingConditionDetected {
	p.lock.RLock()
	defer p.lock.RUnlock()

	n := len(p.pending)
	if !noLimit && n > MaxSlashingsPerBlock {
		n = MaxSlashingsPerBlock
	}
	pending := make([]*slashertypes.SlashingConditionDetected, n)
	copy(pending, p.pending[:n])
	return pending
}

// InsertSlashing adds evidence after checking it against state. Evidence for a
// validator that already has a pending entry is dropped without error.
func (p *Pool) InsertSlashing(state *casper.FinalizationState, slashing *slashertypes.SlashingConditionDetected) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if slashing == nil || slashing.Candidate == nil || slashing.Existing == nil {
		return errors.New("malformed slashing evidence")
	}
	addr := slashing.Candidate.Vote.Validator
	if p.included[addr] {
		slashingReattempts.Inc()
		return errors.Errorf("validator %s was already slashed in a block and cannot be slashed again", addr.Hex())
	}
	if err := state.IsSlashable(&slashing.Candidate.Vote, &slashing.Existing.Vote); err != nil {
		if r, ok := casper.ResultOf(err); ok && r == casper.SlashAlreadySlashed {
			p.included[addr] = true
			slashingReattempts.Inc()
		} else {
			numSlashingsRejected.Inc()
		}
		return errors.Wrapf(err, "evidence for validator %s is not slashable", addr.Hex())
	}

	found, i := existsInList(p.pending, addr)
	if found {
		return nil
	}
	p.pending = append(p.pending, nil)
	copy(p.pending[i+1:], p.pending[i:])
	p.pending[i] = slashing
	numPendingSlashings.Set(float64(len(p.pending)))
	return nil
}

// MarkIncluded is used when a slash commit for validator has been included in
// a block. The pending entry is removed and further evidence is refused.
func (p *Pool) MarkIncluded(validator common.Address) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if found, i := existsInList(p.pending, validator); found {
		p.pending = append(p.pending[:i], p.pending[i+1:]...)
	}
	if !p.included[validator] {
		p.included[validator] = true
		numSlashingsIncluded.Inc()
	}
	numPendingSlashings.Set(float64(len(p.pending)))
}

// existsInList reports whether validator has an entry and where it is, or
// where it would be inserted.
func existsInList(pending []*slashertypes.SlashingConditionDetected, validator common.Address) (bool, int) {
	i := sort.Search(len(pending), func(j int) bool {
		return bytes.Compare(pending[j].Candidate.Vote.Validator.Bytes(), validator.Bytes()) >= 0
	})
	if i < len(pending) && pending[i].Candidate.Vote.Validator == validator {
		return true, i
	}
	return false, i
}
