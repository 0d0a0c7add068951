// Package simulator produces a synthetic chain of finalization commits and
// feeds it to the state processor, exercising forks, slashing and
// withdrawals without a network.
package simulator

import (
	"context"
	"sync"
	"time"

	"github.com/esperanzalabs/esperanza/beacon-chain/casper"
	"github.com/esperanzalabs/esperanza/beacon-chain/operations/slashings"
	"github.com/esperanzalabs/esperanza/beacon-chain/state/stategen"
	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/ethereum/go-ethereum/common"
	"github.com/paulbellamy/ratecounter"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "simulator")

// ChainProcessor is the part of the state processor driven by the simulator.
type ChainProcessor interface {
	ProcessNewTip(ctx context.Context, block *stategen.Block) error
	ProcessNewTipCandidate(ctx context.Context, block *stategen.Block) error
	Tip() *stategen.BlockIndex
	TipState() *casper.FinalizationState
}

// Config options for the simulator service.
type Config struct {
	Processor ChainProcessor
	// Pool supplies the slashings to include. It may be nil.
	Pool   slashings.PoolManager
	Params *Parameters
	// Delay between two blocks when running as a service.
	Delay time.Duration
}

// Stats summarizes the simulated chain.
type Stats struct {
	Height             primitives.Height
	Tip                common.Hash
	CurrentEpoch       primitives.Epoch
	LastJustifiedEpoch primitives.Epoch
	LastFinalizedEpoch primitives.Epoch
	Blocks             int
	ForkBlocks         int
	RejectedBlocks     int
	Commits            int
	SlashingsIncluded  int
	BlocksPerSecond    int64
}

// Simulator builds blocks on the processor's tip.
type Simulator struct {
	ctx        context.Context
	cancel     context.CancelFunc
	cfg        *Config
	validators []common.Address
	rate       *ratecounter.RateCounter

	lock        sync.RWMutex
	stats       Stats
	doubleVoted bool
	err         error
}

// NewSimulator returns a simulator for cfg. Missing parameters default to
// DefaultParams.
func NewSimulator(ctx context.Context, cfg *Config) *Simulator {
	ctx, cancel := context.WithCancel(ctx)
	if cfg.Params == nil {
		cfg.Params = DefaultParams()
	}
	if cfg.Delay <= 0 {
		cfg.Delay = time.Second
	}
	return &Simulator{
		ctx:        ctx,
		cancel:     cancel,
		cfg:        cfg,
		validators: validatorAddresses(cfg.Params.NumValidators),
		rate:       ratecounter.NewRateCounter(time.Second),
	}
}

// Validators returns the simulated finalizers.
func (s *Simulator) Validators() []common.Address {
	return s.validators
}

// Start the sim.
func (s *Simulator) Start() {
	log.WithField("delay", s.cfg.Delay).Info("Starting service")
	go s.run(time.NewTicker(s.cfg.Delay))
}

// Stop the sim.
func (s *Simulator) Stop() error {
	defer s.cancel()
	log.Info("Stopping service")
	return nil
}

// Status returns the error of the last failed block, if any.
func (s *Simulator) Status() error {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.err
}

func (s *Simulator) run(ticker *time.Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			log.Debug("Simulator context closed, exiting goroutine")
			return
		case <-ticker.C:
			if err := s.Step(s.ctx); err != nil {
				if stategen.IsStoreError(err) {
					log.WithError(err).Fatal("Could not persist simulated block")
				}
				log.WithError(err).Error("Could not simulate block")
				s.lock.Lock()
				s.err = err
				s.lock.Unlock()
			}
		}
	}
}

// Run simulates n blocks, calling onBlock after each one.
func (s *Simulator) Run(ctx context.Context, n int, onBlock func(Stats)) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Step(ctx); err != nil {
			return err
		}
		if onBlock != nil {
			onBlock(s.Stats())
		}
	}
	return nil
}

// Step extends the processor's tip by one block. Depending on the
// parameters it also offers a competing sibling block.
func (s *Simulator) Step(ctx context.Context) error {
	proc := s.cfg.Processor
	parent := proc.Tip()
	st := proc.TipState()
	if parent == nil || st == nil {
		return errors.New("processor has no tip state")
	}

	height := parent.Height + 1
	index := stategen.NewChildIndex(parent, blockHash(parent.Hash, height, 0))
	block, slashed := s.generateBlock(st, index)
	if err := proc.ProcessNewTip(ctx, block); err != nil {
		return errors.Wrapf(err, "could not process block %s", index)
	}
	if s.cfg.Pool != nil {
		for _, addr := range slashed {
			s.cfg.Pool.MarkIncluded(addr)
		}
	}
	s.rate.Incr(1)

	forks, rejected := 0, 0
	if fe := s.cfg.Params.ForkEvery; fe > 0 && int(height)%fe == 0 {
		fork := stategen.NewChildIndex(parent, blockHash(parent.Hash, height, 1))
		if err := proc.ProcessNewTipCandidate(ctx, &stategen.Block{Index: fork}); err != nil {
			if stategen.IsStoreError(err) {
				return errors.Wrapf(err, "could not process fork block %s", fork)
			}
			log.WithError(err).Warn("Fork block rejected")
			rejected++
		} else {
			forks++
		}
	}
	forkHash := blockHash(parent.Hash, height, 2)
	if vote := s.conflictingVote(block, forkHash); vote != nil {
		s.doubleVoted = true
		fork := &stategen.Block{
			Index: stategen.NewChildIndex(parent, forkHash),
			Commits: []casper.Commit{
				&casper.VoteCommit{Hash: txHash(forkHash, 0), Vote: vote, Signature: sign(vote)},
			},
		}
		err := proc.ProcessNewTipCandidate(ctx, fork)
		if stategen.IsStoreError(err) {
			return errors.Wrapf(err, "could not process fork block %s", fork.Index)
		}
		log.WithError(err).WithField("vote", vote.String()).Info("Offered block with a double vote")
		if err != nil {
			rejected++
		} else {
			forks++
		}
	}

	tipState := proc.TipState()
	s.lock.Lock()
	s.stats.Height = height
	s.stats.Tip = index.Hash
	s.stats.CurrentEpoch = tipState.CurrentEpoch()
	s.stats.LastJustifiedEpoch = tipState.LastJustifiedEpoch()
	s.stats.LastFinalizedEpoch = tipState.LastFinalizedEpoch()
	s.stats.Blocks++
	s.stats.ForkBlocks += forks
	s.stats.RejectedBlocks += rejected
	s.stats.Commits += len(block.Commits)
	s.stats.SlashingsIncluded += len(slashed)
	s.stats.BlocksPerSecond = s.rate.Rate()
	s.lock.Unlock()
	return nil
}

// Stats returns a snapshot of the simulation counters.
func (s *Simulator) Stats() Stats {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.stats
}
