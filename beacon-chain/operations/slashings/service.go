package slashings

import (
	"context"
	"sync"

	"github.com/esperanzalabs/esperanza/beacon-chain/casper"
	slashertypes "github.com/esperanzalabs/esperanza/beacon-chain/slasher/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "pool/slashings")

// SlashingFeed is where slashing evidence comes from.
type SlashingFeed interface {
	SubscribeSlashings(ch chan<- *slashertypes.SlashingConditionDetected) event.Subscription
}

// TipStateFetcher returns the finalization state of the current tip, or nil
// before the first tip has been processed.
type TipStateFetcher interface {
	TipState() *casper.FinalizationState
}

// Config options for the service.
type Config struct {
	Pool      PoolManager
	Feed      SlashingFeed
	TipState  TipStateFetcher
	QueueSize int
}

// Service moves evidence from the slashing feed into the pool.
type Service struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *Config
	lock   sync.RWMutex
	err    error
}

// NewService instantiates a new slashing pool service instance that will
// be registered into a running node.
func NewService(ctx context.Context, cfg *Config) *Service {
	ctx, cancel := context.WithCancel(ctx)
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	return &Service{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
	}
}

// Start the service's event loop.
func (s *Service) Start() {
	ch := make(chan *slashertypes.SlashingConditionDetected, s.cfg.QueueSize)
	sub := s.cfg.Feed.SubscribeSlashings(ch)
	go s.receiveSlashings(ch, sub)
}

func (s *Service) receiveSlashings(ch chan *slashertypes.SlashingConditionDetected, sub event.Subscription) {
	defer sub.Unsubscribe()
	for {
		select {
		case slashing := <-ch:
			state := s.cfg.TipState.TipState()
			if state == nil {
				log.Debug("No tip state yet, dropping slashing evidence")
				continue
			}
			if err := s.cfg.Pool.InsertSlashing(state, slashing); err != nil {
				log.WithError(err).Debug("Could not insert slashing into pool")
				continue
			}
			log.WithFields(logrus.Fields{
				"validator":   slashing.Candidate.Vote.Validator.Hex(),
				"kind":        slashing.Kind,
				"targetEpoch": slashing.Candidate.Vote.TargetEpoch,
			}).Info("Slashing evidence added to pool")
		case err := <-sub.Err():
			if err != nil {
				log.WithError(err).Debug("Subscriber closed with error")
				s.setErr(err)
			}
			return
		case <-s.ctx.Done():
			return
		}
	}
}

// Stop the service's event loop.
func (s *Service) Stop() error {
	defer s.cancel()
	return nil
}

func (s *Service) setErr(err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.err = err
}

// Status returns the current service err if there's any.
func (s *Service) Status() error {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.err
}
