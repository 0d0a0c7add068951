package stategen

import (
	"context"
	"sync"

	"github.com/esperanzalabs/esperanza/beacon-chain/casper"
	"github.com/esperanzalabs/esperanza/beacon-chain/db/kv"
	slashertypes "github.com/esperanzalabs/esperanza/beacon-chain/slasher/types"
	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"
)

// StateStore persists COMPLETED states and the active tip.
type StateStore interface {
	StateReader
	SaveFinalizationState(ctx context.Context, summary *kv.StateSummary, st *casper.FinalizationState) error
	DeleteFinalizationStates(ctx context.Context, hashes []common.Hash) error
	SaveTipHash(ctx context.Context, hash common.Hash) error
}

// VoteRecorder receives every vote found in processed commits.
type VoteRecorder interface {
	RecordVote(ctx context.Context, vote *casper.Vote, sig []byte) (*slashertypes.SlashingConditionDetected, error)
}

// FinalizedCheckpoint is sent on the finalization feed when the active tip
// finalizes a new epoch.
type FinalizedCheckpoint struct {
	Epoch primitives.Epoch
	Index *BlockIndex
}

// ProcessorConfig wires the processor to its collaborators. Recorder may be
// nil.
type ProcessorConfig struct {
	Repository *Repository
	DB         StateStore
	Recorder   VoteRecorder
}

// Processor drives the repository from block events: commits of headers,
// full tip candidates and the active tip.
type Processor struct {
	repo     *Repository
	db       StateStore
	recorder VoteRecorder

	lock          sync.RWMutex
	tip           *BlockIndex
	lastFinalized primitives.Epoch

	finalizedFeed event.Feed
}

// NewProcessor returns a processor whose tip is the repository root.
func NewProcessor(cfg *ProcessorConfig) *Processor {
	return &Processor{
		repo:     cfg.Repository,
		db:       cfg.DB,
		recorder: cfg.Recorder,
		tip:      cfg.Repository.Root(),
	}
}

// Initialize restores the repository from the state store. A fresh store is
// seeded with the genesis state.
func (p *Processor) Initialize(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "stategen.Initialize")
	defer span.End()

	tip, err := p.repo.Restore(ctx, p.db)
	if err != nil {
		return err
	}
	st := p.repo.Find(tip)
	if st == nil {
		return errors.Errorf("no state for restored tip %s", tip)
	}
	if tip == p.repo.Root() && tip.Height == 0 {
		if err := p.saveState(ctx, tip, st); err != nil {
			return err
		}
		if err := p.saveTip(ctx, tip); err != nil {
			return err
		}
	}
	p.repo.SetTip(tip)
	p.lock.Lock()
	p.tip = tip
	p.lastFinalized = st.LastFinalizedEpoch()
	p.lock.Unlock()
	p.updateGauges(tip, st)
	return nil
}

// ProcessNewCommits builds the FROM_COMMITS state of index. The parent must
// have at least a FROM_COMMITS state.
func (p *Processor) ProcessNewCommits(ctx context.Context, index *BlockIndex, commits []casper.Commit) error {
	ctx, span := trace.StartSpan(ctx, "stategen.ProcessNewCommits")
	defer span.End()

	_, err := p.repo.apply(index, casper.StatusFromCommits, casper.StatusFromCommits, func(st *casper.FinalizationState) error {
		return st.ProcessNewCommits(index.Height, index.Hash, commits)
	})
	if recordErr := p.recordVotes(ctx, commits); recordErr != nil {
		return recordErr
	}
	return err
}

// ProcessNewTipCandidate builds and persists the COMPLETED state of a full
// block whose parent is COMPLETED. A state built earlier from the block's
// commits must agree with it. The active tip does not change.
func (p *Processor) ProcessNewTipCandidate(ctx context.Context, block *Block) error {
	ctx, span := trace.StartSpan(ctx, "stategen.ProcessNewTipCandidate")
	defer span.End()

	_, err := p.processCandidate(ctx, block)
	return err
}

func (p *Processor) processCandidate(ctx context.Context, block *Block) (*casper.FinalizationState, error) {
	if block == nil || block.Index == nil {
		return nil, errNilIndex
	}
	st, err := p.repo.apply(block.Index, casper.StatusCompleted, casper.StatusCompleted, func(st *casper.FinalizationState) error {
		return st.ProcessNewCommits(block.Index.Height, block.Index.Hash, block.Commits)
	})
	if recordErr := p.recordVotes(ctx, block.Commits); recordErr != nil {
		return nil, recordErr
	}
	if err != nil {
		return nil, err
	}
	if err := p.saveState(ctx, block.Index, st); err != nil {
		return nil, err
	}
	return st, nil
}

// ProcessNewTip processes block as a candidate and makes it the active tip.
// When the tip finalizes a new epoch the repository is
// trimmed below the finalized checkpoint.
func (p *Processor) ProcessNewTip(ctx context.Context, block *Block) error {
	ctx, span := trace.StartSpan(ctx, "stategen.ProcessNewTip")
	defer span.End()

	st, err := p.processCandidate(ctx, block)
	if err != nil {
		return err
	}
	index := block.Index
	if err := p.saveTip(ctx, index); err != nil {
		return err
	}
	p.repo.SetTip(index)

	p.lock.Lock()
	p.tip = index
	finalized := st.LastFinalizedEpoch()
	advanced := finalized > p.lastFinalized
	if advanced {
		p.lastFinalized = finalized
	}
	p.lock.Unlock()
	p.updateGauges(index, st)

	if !advanced {
		return nil
	}
	checkpoint := index.Ancestor(st.GetEpochCheckpointHeight(finalized))
	if checkpoint == nil {
		log.WithField("epoch", finalized).Warn("Finalized checkpoint is not an ancestor of the tip")
		return nil
	}
	return p.FinalizationHappened(ctx, finalized, checkpoint)
}

// FinalizationHappened drops the states that can no longer become part of
// the chain once checkpoint is final.
func (p *Processor) FinalizationHappened(ctx context.Context, epoch primitives.Epoch, checkpoint *BlockIndex) error {
	ctx, span := trace.StartSpan(ctx, "stategen.FinalizationHappened")
	defer span.End()

	dropped := p.repo.TrimUntilHeight(checkpoint.Height)
	if err := p.db.DeleteFinalizationStates(ctx, dropped); err != nil {
		return &StoreError{Err: errors.Wrap(err, "could not delete trimmed states")}
	}
	log.WithFields(logrus.Fields{
		"epoch":      epoch,
		"checkpoint": checkpoint.String(),
		"trimmed":    len(dropped),
	}).Info("Finalized checkpoint")
	p.finalizedFeed.Send(&FinalizedCheckpoint{Epoch: epoch, Index: checkpoint})
	return nil
}

func (p *Processor) saveState(ctx context.Context, index *BlockIndex, st *casper.FinalizationState) error {
	summary := &kv.StateSummary{Hash: index.Hash, Height: index.Height}
	if index.Parent != nil {
		summary.Parent = index.Parent.Hash
	}
	if err := p.db.SaveFinalizationState(ctx, summary, st); err != nil {
		return &StoreError{Err: errors.Wrapf(err, "could not save state of %s", index)}
	}
	return nil
}

func (p *Processor) saveTip(ctx context.Context, index *BlockIndex) error {
	if err := p.db.SaveTipHash(ctx, index.Hash); err != nil {
		return &StoreError{Err: errors.Wrapf(err, "could not save tip %s", index)}
	}
	return nil
}

// recordVotes forwards every vote of commits to the recorder, whether or not
// the block turned out to be valid.
func (p *Processor) recordVotes(ctx context.Context, commits []casper.Commit) error {
	if p.recorder == nil {
		return nil
	}
	for _, c := range commits {
		vc, ok := c.(*casper.VoteCommit)
		if !ok || vc.Vote == nil {
			continue
		}
		if _, err := p.recorder.RecordVote(ctx, vc.Vote, vc.Signature); err != nil {
			return &StoreError{Err: errors.Wrapf(err, "could not record vote %s", vc.Vote)}
		}
	}
	return nil
}

func (p *Processor) updateGauges(tip *BlockIndex, st *casper.FinalizationState) {
	tipHeightGauge.Set(float64(tip.Height))
	lastJustifiedEpochGauge.Set(float64(st.LastJustifiedEpoch()))
	lastFinalizedEpochGauge.Set(float64(st.LastFinalizedEpoch()))
}

// Tip returns the active tip.
func (p *Processor) Tip() *BlockIndex {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.tip
}

// TipState returns the COMPLETED state of the active tip.
func (p *Processor) TipState() *casper.FinalizationState {
	return p.repo.Find(p.Tip())
}

// Repository returns the repository driven by the processor.
func (p *Processor) Repository() *Repository {
	return p.repo
}

// SubscribeFinalized subscribes to finalized checkpoints of the active tip.
func (p *Processor) SubscribeFinalized(ch chan<- *FinalizedCheckpoint) event.Subscription {
	return p.finalizedFeed.Subscribe(ch)
}
