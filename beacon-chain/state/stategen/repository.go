// Package stategen keeps one finalization state per tracked block so that
// every fork tip can be extended from the state of its parent.
package stategen

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/esperanzalabs/esperanza/beacon-chain/casper"
	"github.com/esperanzalabs/esperanza/beacon-chain/db/kv"
	"github.com/esperanzalabs/esperanza/config/params"
	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	mutexasserts "github.com/trailofbits/go-mutexasserts"
	"go.opencensus.io/trace"
	"gopkg.in/d4l3k/messagediff.v1"
)

type entry struct {
	index *BlockIndex
	state *casper.FinalizationState
}

// Repository maps block indices to finalization states. States move from
// NEW to FROM_COMMITS to COMPLETED and a stored state is replaced, never
// modified.
type Repository struct {
	lock    sync.RWMutex
	cfg     *params.FinalizationConfig
	admin   *casper.AdminState
	root    *BlockIndex
	tip     *BlockIndex
	entries map[common.Hash]*entry
}

// NewRepository returns a repository holding the COMPLETED genesis state.
func NewRepository(cfg *params.FinalizationConfig, admin *casper.AdminState, genesis *BlockIndex) *Repository {
	r := &Repository{
		cfg:   cfg,
		admin: admin,
	}
	r.reset(genesis)
	return r
}

func (r *Repository) reset(root *BlockIndex) {
	st := casper.NewFinalizationState(r.cfg, r.admin)
	st.SetStatus(casper.StatusCompleted)
	r.root = root
	r.tip = root
	r.entries = map[common.Hash]*entry{root.Hash: {index: root, state: st}}
	trackedStatesGauge.Set(1)
}

func (r *Repository) assertLocked() {
	if !mutexasserts.RWMutexLocked(&r.lock) {
		panic("stategen: repository lock is not held")
	}
}

// Root returns the oldest tracked index, genesis unless history was reset.
func (r *Repository) Root() *BlockIndex {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.root
}

// SetTip marks index as the active tip. Trimming never drops the active tip
// or its ancestors.
func (r *Repository) SetTip(index *BlockIndex) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.tip = index
}

// Find returns the state of index, or nil.
func (r *Repository) Find(index *BlockIndex) *casper.FinalizationState {
	if index == nil {
		return nil
	}
	r.lock.RLock()
	defer r.lock.RUnlock()
	if e, ok := r.entries[index.Hash]; ok {
		return e.state
	}
	return nil
}

// FindOrCreate returns the state of index. A missing state is created as a
// NEW copy of the parent state, provided the parent reached required.
// Otherwise nil is returned.
func (r *Repository) FindOrCreate(index *BlockIndex, required casper.Status) *casper.FinalizationState {
	if index == nil {
		return nil
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.findOrCreateLocked(index, required)
}

func (r *Repository) findOrCreateLocked(index *BlockIndex, required casper.Status) *casper.FinalizationState {
	r.assertLocked()
	if e, ok := r.entries[index.Hash]; ok {
		return e.state
	}
	parent := r.parentStateLocked(index, required)
	if parent == nil {
		return nil
	}
	st := parent.Copy()
	r.entries[index.Hash] = &entry{index: index, state: st}
	trackedStatesGauge.Set(float64(len(r.entries)))
	return st
}

func (r *Repository) parentStateLocked(index *BlockIndex, required casper.Status) *casper.FinalizationState {
	r.assertLocked()
	if index.Parent == nil {
		return nil
	}
	e, ok := r.entries[index.Parent.Hash]
	if !ok || e.state.Status() < required {
		return nil
	}
	return e.state
}

// Confirm stores newState as the COMPLETED state of index. If a state built
// from commits exists it must be equal to newState, otherwise
// ErrStateMismatch is returned and the stored state is kept.
func (r *Repository) Confirm(index *BlockIndex, newState *casper.FinalizationState) error {
	if index == nil {
		return errNilIndex
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.confirmLocked(index, newState)
}

func (r *Repository) confirmLocked(index *BlockIndex, newState *casper.FinalizationState) error {
	r.assertLocked()
	e, ok := r.entries[index.Hash]
	if ok && e.state.Status() != casper.StatusNew {
		if !e.state.Equal(newState) {
			stateMismatchesTotal.Inc()
			diff, _ := messagediff.PrettyDiff(e.state.Snapshot(), newState.Snapshot())
			log.WithFields(logrus.Fields{
				"block":  index.String(),
				"status": e.state.Status(),
			}).Errorf("State built from the block differs from the stored state: %s", diff)
			return errors.Wrapf(ErrStateMismatch, "block %s", index)
		}
		if e.state.Status() == casper.StatusFromCommits {
			confirmedStatesTotal.Inc()
		}
	}
	newState.SetStatus(casper.StatusCompleted)
	r.entries[index.Hash] = &entry{index: index, state: newState}
	trackedStatesGauge.Set(float64(len(r.entries)))
	return nil
}

// apply builds the state of index to status by running fn on a private copy
// of the parent state. The parent must have reached required. A failed build
// leaves the repository as it was before the call, and a block that already
// reached status is returned as is.
func (r *Repository) apply(
	index *BlockIndex,
	required, status casper.Status,
	fn func(*casper.FinalizationState) error,
) (*casper.FinalizationState, error) {
	if index == nil {
		return nil, errNilIndex
	}
	r.lock.Lock()
	defer r.lock.Unlock()

	if e, ok := r.entries[index.Hash]; ok && e.state.Status() >= status {
		return e.state, nil
	}
	parent := r.parentStateLocked(index, required)
	if parent == nil {
		return nil, errors.Wrapf(ErrMissingAncestor, "block %s needs a %s parent", index, required)
	}
	st := parent.Copy()
	if err := fn(st); err != nil {
		return nil, err
	}
	if status == casper.StatusCompleted {
		if err := r.confirmLocked(index, st); err != nil {
			return nil, err
		}
		return st, nil
	}
	st.SetStatus(status)
	r.entries[index.Hash] = &entry{index: index, state: st}
	trackedStatesGauge.Set(float64(len(r.entries)))
	return st, nil
}

// TrimUntilHeight drops the states below height that are not ancestors of a
// block at or above height. The root, the active tip and the ancestors of the
// active tip are always kept. It returns the hashes of the dropped states.
func (r *Repository) TrimUntilHeight(height primitives.Height) []common.Hash {
	r.lock.Lock()
	defer r.lock.Unlock()

	keep := map[common.Hash]bool{r.root.Hash: true}
	for cur := r.tip; cur != nil && !keep[cur.Hash]; cur = cur.Parent {
		keep[cur.Hash] = true
	}
	for _, e := range r.entries {
		if e.index.Height < height {
			continue
		}
		for cur := e.index; cur != nil && !keep[cur.Hash]; cur = cur.Parent {
			keep[cur.Hash] = true
		}
	}
	dropped := make([]common.Hash, 0)
	for h := range r.entries {
		if !keep[h] {
			delete(r.entries, h)
			dropped = append(dropped, h)
		}
	}
	sort.Slice(dropped, func(i, j int) bool {
		return bytes.Compare(dropped[i].Bytes(), dropped[j].Bytes()) < 0
	})
	trimmedStatesTotal.Add(float64(len(dropped)))
	trackedStatesGauge.Set(float64(len(r.entries)))
	if len(dropped) > 0 {
		log.WithFields(logrus.Fields{
			"height":    height,
			"dropped":   len(dropped),
			"remaining": len(r.entries),
		}).Debug("Trimmed repository")
	}
	return dropped
}

// ResetToTip discards every state and seeds an empty COMPLETED state at
// index. It is a workaround for nodes that lack the history of index.
func (r *Repository) ResetToTip(index *BlockIndex) {
	r.lock.Lock()
	defer r.lock.Unlock()
	log.WithField("block", index.String()).Warn("Resetting finalization history to tip")
	r.reset(index)
}

// StateReader is the part of the state store needed to restore the repository.
type StateReader interface {
	FinalizationState(ctx context.Context, hash common.Hash) (*casper.FinalizationState, error)
	StateSummaries(ctx context.Context) ([]*kv.StateSummary, error)
	TipHash(ctx context.Context) (common.Hash, error)
}

// Restore replaces the repository contents with the COMPLETED states stored
// in db and returns the index of the stored tip. When db holds nothing the
// repository is left untouched and its root is returned.
func (r *Repository) Restore(ctx context.Context, db StateReader) (*BlockIndex, error) {
	ctx, span := trace.StartSpan(ctx, "stategen.Restore")
	defer span.End()

	summaries, err := db.StateSummaries(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not read state summaries")
	}
	if len(summaries) == 0 {
		return r.Root(), nil
	}
	indices := make(map[common.Hash]*BlockIndex, len(summaries))
	entries := make(map[common.Hash]*entry, len(summaries))
	var root, highest *BlockIndex
	for _, s := range summaries {
		index := &BlockIndex{Hash: s.Hash, Height: s.Height, Parent: indices[s.Parent]}
		if index.Parent == nil {
			if root != nil {
				log.WithField("block", index.String()).Warn("Skipping stored state with unknown parent")
				continue
			}
			root = index
		}
		st, err := db.FinalizationState(ctx, s.Hash)
		if err != nil {
			return nil, errors.Wrapf(err, "could not load state of %s", index)
		}
		if st == nil {
			return nil, errors.Errorf("state summary without state for %s", index)
		}
		st.SetStatus(casper.StatusCompleted)
		indices[s.Hash] = index
		entries[s.Hash] = &entry{index: index, state: st}
		highest = index
	}
	tipHash, err := db.TipHash(ctx)
	if err != nil {
		return nil, err
	}
	tip, ok := indices[tipHash]
	if !ok {
		tip = highest
	}

	r.lock.Lock()
	r.root = root
	r.tip = tip
	r.entries = entries
	r.lock.Unlock()
	trackedStatesGauge.Set(float64(len(entries)))

	log.WithFields(logrus.Fields{
		"states": len(entries),
		"root":   root.String(),
		"tip":    tip.String(),
	}).Info("Restored finalization states")
	return tip, nil
}

// Tips returns the tracked blocks without tracked children, highest first.
func (r *Repository) Tips() []*BlockIndex {
	r.lock.RLock()
	defer r.lock.RUnlock()
	hasChild := make(map[common.Hash]bool, len(r.entries))
	for _, e := range r.entries {
		if e.index.Parent != nil {
			hasChild[e.index.Parent.Hash] = true
		}
	}
	tips := make([]*BlockIndex, 0)
	for h, e := range r.entries {
		if !hasChild[h] {
			tips = append(tips, e.index)
		}
	}
	sort.Slice(tips, func(i, j int) bool {
		if tips[i].Height != tips[j].Height {
			return tips[i].Height > tips[j].Height
		}
		return bytes.Compare(tips[i].Hash.Bytes(), tips[j].Hash.Bytes()) < 0
	})
	return tips
}

// Len returns the number of tracked states.
func (r *Repository) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.entries)
}

// ChainInfo is a read-only summary of the state at a block.
type ChainInfo struct {
	Index              *BlockIndex
	Status             casper.Status
	CurrentEpoch       primitives.Epoch
	CurrentDynasty     primitives.Dynasty
	LastJustifiedEpoch primitives.Epoch
	LastFinalizedEpoch primitives.Epoch
	ActiveValidators   int
	CurDynastyDeposits uint64
}

// ChainInfo returns the summary of the state at index, or nil if untracked.
func (r *Repository) ChainInfo(index *BlockIndex) *ChainInfo {
	st := r.Find(index)
	if st == nil {
		return nil
	}
	return &ChainInfo{
		Index:              index,
		Status:             st.Status(),
		CurrentEpoch:       st.CurrentEpoch(),
		CurrentDynasty:     st.CurrentDynasty(),
		LastJustifiedEpoch: st.LastJustifiedEpoch(),
		LastFinalizedEpoch: st.LastFinalizedEpoch(),
		ActiveValidators:   st.ActiveValidators(),
		CurDynastyDeposits: st.CurDynastyDeposits(),
	}
}
