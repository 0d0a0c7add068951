// Package casper implements the finalization state machine: epochs and
// dynasties, validator deposits, checkpoint votes with justification and
// finalization, logouts, withdrawals and slashing.
package casper

import (
	"bytes"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/esperanzalabs/esperanza/config/params"
	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/esperanzalabs/esperanza/math/ufp64"
	"github.com/ethereum/go-ethereum/common"
)

// Status tracks how much of a block a state has been built from.
type Status uint8

const (
	// StatusNew is a fresh copy of the parent state.
	StatusNew Status = iota
	// StatusFromCommits is built from the commits of a block only.
	StatusFromCommits
	// StatusCompleted is built from, or verified against, the full block.
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "NEW"
	case StatusFromCommits:
		return "FROM_COMMITS"
	case StatusCompleted:
		return "COMPLETED"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// FinalizationState is the finalization state at one block. A state is
// advanced by a single goroutine. Copies share their map fields until one
// side writes to them.
type FinalizationState struct {
	cfg   *params.FinalizationConfig
	admin *AdminState

	status                 Status
	currentEpoch           primitives.Epoch
	currentDynasty         primitives.Dynasty
	curDynDeposits         uint64
	prevDynDeposits        uint64
	expectedSourceEpoch    primitives.Epoch
	lastJustifiedEpoch     primitives.Epoch
	lastFinalizedEpoch     primitives.Epoch
	recommendedTargetHash  common.Hash
	recommendedTargetEpoch primitives.Epoch
	rewardFactor           ufp64.UFP64
	lastVoterRescale       ufp64.UFP64
	lastNonVoterRescale    ufp64.UFP64
	mainHashJustified      bool

	validators         map[common.Address]*Validator
	checkpoints        map[primitives.Epoch]*Checkpoint
	dynastyDeltas      map[primitives.Dynasty]int64
	depositScaleFactor map[primitives.Epoch]ufp64.UFP64
	totalSlashed       map[primitives.Epoch]uint64
	dynastyStartEpoch  map[primitives.Dynasty]primitives.Epoch

	lock                  sync.Mutex
	sharedFieldReferences map[fieldIndex]*reference
	ownedValidators       map[common.Address]struct{}
	ownedCheckpoints      map[primitives.Epoch]struct{}
}

// NewFinalizationState returns the genesis state: epoch 0 is justified and
// finalized and its deposit scale factor is one.
func NewFinalizationState(cfg *params.FinalizationConfig, admin *AdminState) *FinalizationState {
	if admin == nil {
		admin = &AdminState{whiteList: make(map[common.Address]struct{})}
	}
	genesis := newCheckpoint()
	genesis.Justified = true
	genesis.Finalized = true
	s := &FinalizationState{
		cfg:                cfg,
		admin:              admin,
		validators:         make(map[common.Address]*Validator),
		checkpoints:        map[primitives.Epoch]*Checkpoint{0: genesis},
		dynastyDeltas:      make(map[primitives.Dynasty]int64),
		depositScaleFactor: map[primitives.Epoch]ufp64.UFP64{0: ufp64.Unit},
		totalSlashed:       map[primitives.Epoch]uint64{0: 0},
		dynastyStartEpoch:  map[primitives.Dynasty]primitives.Epoch{0: 0},
	}
	s.initReferences()
	return s
}

func (s *FinalizationState) initReferences() {
	s.sharedFieldReferences = make(map[fieldIndex]*reference, numFields)
	for f := fieldIndex(0); f < numFields; f++ {
		s.sharedFieldReferences[f] = newRef(1)
	}
	s.ownedValidators = make(map[common.Address]struct{})
	s.ownedCheckpoints = make(map[primitives.Epoch]struct{})
	runtime.SetFinalizer(s, finalizerCleanup)
}

// Copy returns a NEW state equal to s. Maps are shared with s and cloned by
// whichever state writes to them first.
func (s *FinalizationState) Copy() *FinalizationState {
	s.lock.Lock()
	defer s.lock.Unlock()

	dst := &FinalizationState{
		cfg:                    s.cfg,
		admin:                  s.admin,
		status:                 StatusNew,
		currentEpoch:           s.currentEpoch,
		currentDynasty:         s.currentDynasty,
		curDynDeposits:         s.curDynDeposits,
		prevDynDeposits:        s.prevDynDeposits,
		expectedSourceEpoch:    s.expectedSourceEpoch,
		lastJustifiedEpoch:     s.lastJustifiedEpoch,
		lastFinalizedEpoch:     s.lastFinalizedEpoch,
		recommendedTargetHash:  s.recommendedTargetHash,
		recommendedTargetEpoch: s.recommendedTargetEpoch,
		rewardFactor:           s.rewardFactor,
		lastVoterRescale:       s.lastVoterRescale,
		lastNonVoterRescale:    s.lastNonVoterRescale,
		mainHashJustified:      s.mainHashJustified,

		validators:         s.validators,
		checkpoints:        s.checkpoints,
		dynastyDeltas:      s.dynastyDeltas,
		depositScaleFactor: s.depositScaleFactor,
		totalSlashed:       s.totalSlashed,
		dynastyStartEpoch:  s.dynastyStartEpoch,

		sharedFieldReferences: make(map[fieldIndex]*reference, numFields),
		ownedValidators:       make(map[common.Address]struct{}),
		ownedCheckpoints:      make(map[primitives.Epoch]struct{}),
	}
	for f, ref := range s.sharedFieldReferences {
		ref.AddRef()
		dst.sharedFieldReferences[f] = ref
	}
	// Entries s copied privately are now visible to dst as well.
	s.ownedValidators = make(map[common.Address]struct{})
	s.ownedCheckpoints = make(map[primitives.Epoch]struct{})

	runtime.SetFinalizer(dst, finalizerCleanup)
	return dst
}

func finalizerCleanup(s *FinalizationState) {
	for _, ref := range s.sharedFieldReferences {
		ref.MinusRef()
	}
}

// own clones field f when another state still shares it.
func (s *FinalizationState) own(f fieldIndex) {
	s.lock.Lock()
	defer s.lock.Unlock()
	ref := s.sharedFieldReferences[f]
	if ref.Refs() <= 1 {
		return
	}
	switch f {
	case validatorsField:
		m := make(map[common.Address]*Validator, len(s.validators))
		for k, v := range s.validators {
			m[k] = v
		}
		s.validators = m
		s.ownedValidators = make(map[common.Address]struct{})
	case checkpointsField:
		m := make(map[primitives.Epoch]*Checkpoint, len(s.checkpoints))
		for k, v := range s.checkpoints {
			m[k] = v
		}
		s.checkpoints = m
		s.ownedCheckpoints = make(map[primitives.Epoch]struct{})
	case dynastyDeltasField:
		m := make(map[primitives.Dynasty]int64, len(s.dynastyDeltas))
		for k, v := range s.dynastyDeltas {
			m[k] = v
		}
		s.dynastyDeltas = m
	case depositScaleFactorField:
		m := make(map[primitives.Epoch]ufp64.UFP64, len(s.depositScaleFactor))
		for k, v := range s.depositScaleFactor {
			m[k] = v
		}
		s.depositScaleFactor = m
	case totalSlashedField:
		m := make(map[primitives.Epoch]uint64, len(s.totalSlashed))
		for k, v := range s.totalSlashed {
			m[k] = v
		}
		s.totalSlashed = m
	case dynastyStartEpochField:
		m := make(map[primitives.Dynasty]primitives.Epoch, len(s.dynastyStartEpoch))
		for k, v := range s.dynastyStartEpoch {
			m[k] = v
		}
		s.dynastyStartEpoch = m
	default:
		panic(fmt.Sprintf("unknown field %d", f))
	}
	ref.MinusRef()
	s.sharedFieldReferences[f] = newRef(1)
}

// mutableValidator returns a validator record that only s references.
func (s *FinalizationState) mutableValidator(addr common.Address) *Validator {
	s.own(validatorsField)
	s.lock.Lock()
	defer s.lock.Unlock()
	v, ok := s.validators[addr]
	if !ok {
		panic(fmt.Sprintf("validator %s not found", addr.Hex()))
	}
	if _, owned := s.ownedValidators[addr]; !owned {
		v = v.Copy()
		s.validators[addr] = v
		s.ownedValidators[addr] = struct{}{}
	}
	return v
}

func (s *FinalizationState) putValidator(v *Validator) {
	s.own(validatorsField)
	s.lock.Lock()
	defer s.lock.Unlock()
	s.validators[v.Address] = v
	s.ownedValidators[v.Address] = struct{}{}
}

// mutableCheckpoint returns a checkpoint that only s references.
func (s *FinalizationState) mutableCheckpoint(epoch primitives.Epoch) *Checkpoint {
	s.own(checkpointsField)
	s.lock.Lock()
	defer s.lock.Unlock()
	c, ok := s.checkpoints[epoch]
	if !ok {
		panic(fmt.Sprintf("checkpoint for epoch %d not found", epoch))
	}
	if _, owned := s.ownedCheckpoints[epoch]; !owned {
		c = c.Copy()
		s.checkpoints[epoch] = c
		s.ownedCheckpoints[epoch] = struct{}{}
	}
	return c
}

func (s *FinalizationState) putCheckpoint(epoch primitives.Epoch, c *Checkpoint) {
	s.own(checkpointsField)
	s.lock.Lock()
	defer s.lock.Unlock()
	s.checkpoints[epoch] = c
	s.ownedCheckpoints[epoch] = struct{}{}
}

func (s *FinalizationState) addDynastyDelta(d primitives.Dynasty, delta int64) {
	s.own(dynastyDeltasField)
	s.dynastyDeltas[d] += delta
}

func (s *FinalizationState) setDepositScaleFactor(e primitives.Epoch, f ufp64.UFP64) {
	s.own(depositScaleFactorField)
	s.depositScaleFactor[e] = f
}

func (s *FinalizationState) setTotalSlashed(e primitives.Epoch, amount uint64) {
	s.own(totalSlashedField)
	s.totalSlashed[e] = amount
}

func (s *FinalizationState) setDynastyStartEpoch(d primitives.Dynasty, e primitives.Epoch) {
	s.own(dynastyStartEpochField)
	s.dynastyStartEpoch[d] = e
}

// Status returns how far the state has been built.
func (s *FinalizationState) Status() Status {
	return s.status
}

// SetStatus advances the status. Statuses never go backwards.
func (s *FinalizationState) SetStatus(status Status) {
	if status < s.status {
		panic(fmt.Sprintf("cannot downgrade state status from %s to %s", s.status, status))
	}
	s.status = status
}

// Config returns the parameters the state runs with.
func (s *FinalizationState) Config() *params.FinalizationConfig {
	return s.cfg
}

// Admin returns the permissioning gate.
func (s *FinalizationState) Admin() *AdminState {
	return s.admin
}

func (s *FinalizationState) CurrentEpoch() primitives.Epoch {
	return s.currentEpoch
}

func (s *FinalizationState) CurrentDynasty() primitives.Dynasty {
	return s.currentDynasty
}

func (s *FinalizationState) LastJustifiedEpoch() primitives.Epoch {
	return s.lastJustifiedEpoch
}

func (s *FinalizationState) LastFinalizedEpoch() primitives.Epoch {
	return s.lastFinalizedEpoch
}

func (s *FinalizationState) ExpectedSourceEpoch() primitives.Epoch {
	return s.expectedSourceEpoch
}

// RecommendedTarget returns the checkpoint votes of the current epoch should target.
func (s *FinalizationState) RecommendedTarget() (common.Hash, primitives.Epoch) {
	return s.recommendedTargetHash, s.recommendedTargetEpoch
}

// RewardFactor returns the per-epoch reward of a voting deposit.
func (s *FinalizationState) RewardFactor() ufp64.UFP64 {
	return s.rewardFactor
}

// CurDynastyDeposits returns the scaled deposits of the current validator set.
func (s *FinalizationState) CurDynastyDeposits() uint64 {
	return s.curDynDeposits
}

// PrevDynastyDeposits returns the scaled deposits of the previous validator set.
func (s *FinalizationState) PrevDynastyDeposits() uint64 {
	return s.prevDynDeposits
}

// DepositScaleFactor returns the factor of epoch e and whether it is defined.
func (s *FinalizationState) DepositScaleFactor(e primitives.Epoch) (ufp64.UFP64, bool) {
	f, ok := s.depositScaleFactor[e]
	return f, ok
}

// TotalSlashed returns the deposits slashed up to epoch e.
func (s *FinalizationState) TotalSlashed(e primitives.Epoch) uint64 {
	return s.totalSlashed[e]
}

// Validator returns a copy of the record of addr, or nil.
func (s *FinalizationState) Validator(addr common.Address) *Validator {
	v, ok := s.validators[addr]
	if !ok {
		return nil
	}
	return v.Copy()
}

// Validators returns copies of all validator records ordered by address.
func (s *FinalizationState) Validators() []*Validator {
	vals := make([]*Validator, 0, len(s.validators))
	for _, v := range s.validators {
		vals = append(vals, v.Copy())
	}
	sort.Slice(vals, func(i, j int) bool {
		return bytes.Compare(vals[i].Address[:], vals[j].Address[:]) < 0
	})
	return vals
}

// ActiveValidators counts the validators of the current dynasty.
func (s *FinalizationState) ActiveValidators() int {
	n := 0
	for _, v := range s.validators {
		if v.IsInDynasty(s.currentDynasty) {
			n++
		}
	}
	return n
}

// Checkpoint returns a copy of the checkpoint of epoch e, or nil.
func (s *FinalizationState) Checkpoint(e primitives.Epoch) *Checkpoint {
	c, ok := s.checkpoints[e]
	if !ok {
		return nil
	}
	return c.Copy()
}

// DepositSize returns the current, unscaled deposit of addr.
func (s *FinalizationState) DepositSize(addr common.Address) uint64 {
	v, ok := s.validators[addr]
	if !ok {
		return 0
	}
	return ufp64.MulToUint(s.depositScaleFactor[s.currentEpoch], v.Deposit)
}

// GetEpoch returns the epoch a block height belongs to.
func (s *FinalizationState) GetEpoch(height primitives.Height) primitives.Epoch {
	return primitives.Epoch(uint32(height) / s.cfg.EpochLength)
}

// IsEpochStart reports whether height is the first block of an epoch.
func (s *FinalizationState) IsEpochStart(height primitives.Height) bool {
	return uint32(height)%s.cfg.EpochLength == 0
}

// IsCheckpoint reports whether height is the last block of an epoch. Its hash
// is the target of the votes of the following epoch.
func (s *FinalizationState) IsCheckpoint(height primitives.Height) bool {
	return (uint32(height)+1)%s.cfg.EpochLength == 0
}

// GetEpochCheckpointHeight returns the height of the block votes targeting
// epoch e point at. Genesis is the checkpoint of epoch 0.
func (s *FinalizationState) GetEpochCheckpointHeight(e primitives.Epoch) primitives.Height {
	if e == 0 {
		return 0
	}
	return primitives.Height(uint32(e)*s.cfg.EpochLength - 1)
}

// IsJustifiedCheckpoint reports whether the block at height is a justified checkpoint.
func (s *FinalizationState) IsJustifiedCheckpoint(height primitives.Height) bool {
	c, ok := s.checkpointAt(height)
	return ok && c.Justified
}

// IsFinalizedCheckpoint reports whether the block at height is a finalized checkpoint.
func (s *FinalizationState) IsFinalizedCheckpoint(height primitives.Height) bool {
	c, ok := s.checkpointAt(height)
	return ok && c.Finalized
}

func (s *FinalizationState) checkpointAt(height primitives.Height) (*Checkpoint, bool) {
	var e primitives.Epoch
	switch {
	case height == 0:
		e = 0
	case s.IsCheckpoint(height):
		e = s.GetEpoch(height) + 1
	default:
		return nil, false
	}
	c, ok := s.checkpoints[e]
	return c, ok
}
