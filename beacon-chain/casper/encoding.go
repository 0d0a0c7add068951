package casper

import (
	"bytes"
	"sort"

	"github.com/esperanzalabs/esperanza/config/params"
	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/esperanzalabs/esperanza/math/ufp64"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
)

// Snapshot is the canonical form of a state. Maps are flattened into slices
// sorted by key, so equal states have equal encodings.
type Snapshot struct {
	CurrentEpoch           primitives.Epoch
	CurrentDynasty         primitives.Dynasty
	CurDynDeposits         uint64
	PrevDynDeposits        uint64
	ExpectedSourceEpoch    primitives.Epoch
	LastJustifiedEpoch     primitives.Epoch
	LastFinalizedEpoch     primitives.Epoch
	RecommendedTargetHash  common.Hash
	RecommendedTargetEpoch primitives.Epoch
	RewardFactor           ufp64.UFP64
	LastVoterRescale       ufp64.UFP64
	LastNonVoterRescale    ufp64.UFP64
	MainHashJustified      bool
	Validators             []*Validator
	Checkpoints            []*CheckpointRecord
	DynastyDeltas          []DynastyDelta
	DepositScaleFactor     []EpochFactor
	TotalSlashed           []EpochAmount
	DynastyStartEpoch      []DynastyEpoch
}

// CheckpointRecord is the flattened form of a Checkpoint.
type CheckpointRecord struct {
	Epoch               primitives.Epoch
	Justified           bool
	Finalized           bool
	CurDynastyDeposits  uint64
	PrevDynastyDeposits uint64
	CurDynastyVotes     []EpochAmount
	PrevDynastyVotes    []EpochAmount
	VoteSet             []common.Address
}

type EpochAmount struct {
	Epoch  primitives.Epoch
	Amount uint64
}

type EpochFactor struct {
	Epoch  primitives.Epoch
	Factor ufp64.UFP64
}

// DynastyDelta stores the signed delta as its two's complement.
type DynastyDelta struct {
	Dynasty primitives.Dynasty
	Delta   uint64
}

type DynastyEpoch struct {
	Dynasty primitives.Dynasty
	Epoch   primitives.Epoch
}

// Snapshot flattens the state.
func (s *FinalizationState) Snapshot() *Snapshot {
	snap := &Snapshot{
		CurrentEpoch:           s.currentEpoch,
		CurrentDynasty:         s.currentDynasty,
		CurDynDeposits:         s.curDynDeposits,
		PrevDynDeposits:        s.prevDynDeposits,
		ExpectedSourceEpoch:    s.expectedSourceEpoch,
		LastJustifiedEpoch:     s.lastJustifiedEpoch,
		LastFinalizedEpoch:     s.lastFinalizedEpoch,
		RecommendedTargetHash:  s.recommendedTargetHash,
		RecommendedTargetEpoch: s.recommendedTargetEpoch,
		RewardFactor:           s.rewardFactor,
		LastVoterRescale:       s.lastVoterRescale,
		LastNonVoterRescale:    s.lastNonVoterRescale,
		MainHashJustified:      s.mainHashJustified,
		Validators:             s.Validators(),
		Checkpoints:            make([]*CheckpointRecord, 0, len(s.checkpoints)),
		DynastyDeltas:          make([]DynastyDelta, 0, len(s.dynastyDeltas)),
		DepositScaleFactor:     make([]EpochFactor, 0, len(s.depositScaleFactor)),
		TotalSlashed:           make([]EpochAmount, 0, len(s.totalSlashed)),
		DynastyStartEpoch:      make([]DynastyEpoch, 0, len(s.dynastyStartEpoch)),
	}
	for e, c := range s.checkpoints {
		snap.Checkpoints = append(snap.Checkpoints, &CheckpointRecord{
			Epoch:               e,
			Justified:           c.Justified,
			Finalized:           c.Finalized,
			CurDynastyDeposits:  c.CurDynastyDeposits,
			PrevDynastyDeposits: c.PrevDynastyDeposits,
			CurDynastyVotes:     flattenVotes(c.CurDynastyVotes),
			PrevDynastyVotes:    flattenVotes(c.PrevDynastyVotes),
			VoteSet:             flattenVoteSet(c.VoteSet),
		})
	}
	sort.Slice(snap.Checkpoints, func(i, j int) bool { return snap.Checkpoints[i].Epoch < snap.Checkpoints[j].Epoch })
	for d, delta := range s.dynastyDeltas {
		snap.DynastyDeltas = append(snap.DynastyDeltas, DynastyDelta{Dynasty: d, Delta: uint64(delta)})
	}
	sort.Slice(snap.DynastyDeltas, func(i, j int) bool { return snap.DynastyDeltas[i].Dynasty < snap.DynastyDeltas[j].Dynasty })
	for e, f := range s.depositScaleFactor {
		snap.DepositScaleFactor = append(snap.DepositScaleFactor, EpochFactor{Epoch: e, Factor: f})
	}
	sort.Slice(snap.DepositScaleFactor, func(i, j int) bool {
		return snap.DepositScaleFactor[i].Epoch < snap.DepositScaleFactor[j].Epoch
	})
	for e, a := range s.totalSlashed {
		snap.TotalSlashed = append(snap.TotalSlashed, EpochAmount{Epoch: e, Amount: a})
	}
	sort.Slice(snap.TotalSlashed, func(i, j int) bool { return snap.TotalSlashed[i].Epoch < snap.TotalSlashed[j].Epoch })
	for d, e := range s.dynastyStartEpoch {
		snap.DynastyStartEpoch = append(snap.DynastyStartEpoch, DynastyEpoch{Dynasty: d, Epoch: e})
	}
	sort.Slice(snap.DynastyStartEpoch, func(i, j int) bool {
		return snap.DynastyStartEpoch[i].Dynasty < snap.DynastyStartEpoch[j].Dynasty
	})
	return snap
}

func flattenVotes(m map[primitives.Epoch]uint64) []EpochAmount {
	out := make([]EpochAmount, 0, len(m))
	for e, a := range m {
		out = append(out, EpochAmount{Epoch: e, Amount: a})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Epoch < out[j].Epoch })
	return out
}

func flattenVoteSet(m map[common.Address]struct{}) []common.Address {
	out := make([]common.Address, 0, len(m))
	for a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}

// MarshalRLP encodes the state. The admin gate and parameters come from
// config and are not part of the encoding.
func (s *FinalizationState) MarshalRLP() ([]byte, error) {
	enc, err := rlp.EncodeToBytes(s.Snapshot())
	if err != nil {
		return nil, errors.Wrap(err, "could not encode finalization state")
	}
	return enc, nil
}

// UnmarshalFinalizationState decodes a state written by MarshalRLP. The
// returned state has status NEW.
func UnmarshalFinalizationState(cfg *params.FinalizationConfig, admin *AdminState, enc []byte) (*FinalizationState, error) {
	snap := &Snapshot{}
	if err := rlp.DecodeBytes(enc, snap); err != nil {
		return nil, errors.Wrap(err, "could not decode finalization state")
	}
	return FromSnapshot(cfg, admin, snap), nil
}

// FromSnapshot rebuilds a state from its flattened form.
func FromSnapshot(cfg *params.FinalizationConfig, admin *AdminState, snap *Snapshot) *FinalizationState {
	s := NewFinalizationState(cfg, admin)
	s.currentEpoch = snap.CurrentEpoch
	s.currentDynasty = snap.CurrentDynasty
	s.curDynDeposits = snap.CurDynDeposits
	s.prevDynDeposits = snap.PrevDynDeposits
	s.expectedSourceEpoch = snap.ExpectedSourceEpoch
	s.lastJustifiedEpoch = snap.LastJustifiedEpoch
	s.lastFinalizedEpoch = snap.LastFinalizedEpoch
	s.recommendedTargetHash = snap.RecommendedTargetHash
	s.recommendedTargetEpoch = snap.RecommendedTargetEpoch
	s.rewardFactor = snap.RewardFactor
	s.lastVoterRescale = snap.LastVoterRescale
	s.lastNonVoterRescale = snap.LastNonVoterRescale
	s.mainHashJustified = snap.MainHashJustified

	s.checkpoints = make(map[primitives.Epoch]*Checkpoint, len(snap.Checkpoints))
	for _, r := range snap.Checkpoints {
		c := newCheckpoint()
		c.Justified = r.Justified
		c.Finalized = r.Finalized
		c.CurDynastyDeposits = r.CurDynastyDeposits
		c.PrevDynastyDeposits = r.PrevDynastyDeposits
		for _, v := range r.CurDynastyVotes {
			c.CurDynastyVotes[v.Epoch] = v.Amount
		}
		for _, v := range r.PrevDynastyVotes {
			c.PrevDynastyVotes[v.Epoch] = v.Amount
		}
		for _, a := range r.VoteSet {
			c.VoteSet[a] = struct{}{}
		}
		s.checkpoints[r.Epoch] = c
	}
	s.validators = make(map[common.Address]*Validator, len(snap.Validators))
	for _, v := range snap.Validators {
		s.validators[v.Address] = v.Copy()
	}
	s.dynastyDeltas = make(map[primitives.Dynasty]int64, len(snap.DynastyDeltas))
	for _, d := range snap.DynastyDeltas {
		s.dynastyDeltas[d.Dynasty] = int64(d.Delta)
	}
	s.depositScaleFactor = make(map[primitives.Epoch]ufp64.UFP64, len(snap.DepositScaleFactor))
	for _, f := range snap.DepositScaleFactor {
		s.depositScaleFactor[f.Epoch] = f.Factor
	}
	s.totalSlashed = make(map[primitives.Epoch]uint64, len(snap.TotalSlashed))
	for _, a := range snap.TotalSlashed {
		s.totalSlashed[a.Epoch] = a.Amount
	}
	s.dynastyStartEpoch = make(map[primitives.Dynasty]primitives.Epoch, len(snap.DynastyStartEpoch))
	for _, d := range snap.DynastyStartEpoch {
		s.dynastyStartEpoch[d.Dynasty] = d.Epoch
	}
	return s
}

// Equal reports whether s and other hold the same finalization data.
// Statuses are not compared.
func (s *FinalizationState) Equal(other *FinalizationState) bool {
	a, err := s.MarshalRLP()
	if err != nil {
		panic(err)
	}
	b, err := other.MarshalRLP()
	if err != nil {
		panic(err)
	}
	return bytes.Equal(a, b)
}
