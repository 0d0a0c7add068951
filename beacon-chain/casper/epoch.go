package casper

import (
	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/esperanzalabs/esperanza/math/ufp64"
	"github.com/sirupsen/logrus"
)

// InitializeEpoch opens the epoch that starts at height. It must be called
// once per epoch, with the first height of the epoch after the current one.
func (s *FinalizationState) InitializeEpoch(height primitives.Height) error {
	newEpoch := s.currentEpoch.Add(1)
	if !s.IsEpochStart(height) || s.GetEpoch(height) != newEpoch {
		return fail(InitWrongEpoch, "height %d does not start epoch %d", height, newEpoch)
	}

	cp := newCheckpoint()
	cp.CurDynastyDeposits = s.curDynDeposits
	cp.PrevDynastyDeposits = s.prevDynDeposits
	s.putCheckpoint(newEpoch, cp)
	s.currentEpoch = newEpoch

	s.lastVoterRescale = ufp64.Add(s.collectiveReward(), ufp64.Unit)
	s.lastNonVoterRescale = ufp64.Div(s.lastVoterRescale, ufp64.Add(s.rewardFactor, ufp64.Unit))
	prev := newEpoch - 1
	s.setDepositScaleFactor(newEpoch, ufp64.Mul(s.lastNonVoterRescale, s.depositScaleFactor[prev]))
	s.setTotalSlashed(newEpoch, s.totalSlashed[prev])

	if s.depositExists() {
		interest := ufp64.Div(s.cfg.BaseInterestFactor, s.sqrtOfTotalDeposits())
		s.rewardFactor = ufp64.Add(interest, ufp64.MulByUint(s.cfg.BasePenaltyFactor, uint64(s.epochsSinceFinalization())))
	} else {
		s.instaJustify()
		s.rewardFactor = 0
	}
	s.incrementDynasty()

	log.WithFields(logrus.Fields{
		"epoch":              s.currentEpoch,
		"dynasty":            s.currentDynasty,
		"lastJustified":      s.lastJustifiedEpoch,
		"lastFinalized":      s.lastFinalizedEpoch,
		"rewardFactor":       s.rewardFactor,
		"depositScaleFactor": s.depositScaleFactor[newEpoch],
	}).Debug("Initialized epoch")
	return nil
}

func (s *FinalizationState) depositExists() bool {
	return s.curDynDeposits > 0 && s.prevDynDeposits > 0
}

func (s *FinalizationState) epochsSinceFinalization() primitives.Epoch {
	return s.currentEpoch - s.lastFinalizedEpoch
}

// collectiveReward is the reward share earned by the voters of the epoch
// that just ended. It is withheld while finality is stalled.
func (s *FinalizationState) collectiveReward() ufp64.UFP64 {
	if !s.depositExists() || s.epochsSinceFinalization() > 2 {
		return 0
	}
	cp := s.checkpoints[s.currentEpoch-1]
	curVotes := cp.CurDynastyVotes[s.expectedSourceEpoch]
	prevVotes := cp.PrevDynastyVotes[s.expectedSourceEpoch]
	fraction := ufp64.Min(
		ufp64.Div2Uint(curVotes, s.curDynDeposits),
		ufp64.Div2Uint(prevVotes, s.prevDynDeposits),
	)
	return ufp64.DivByUint(ufp64.Mul(fraction, s.rewardFactor), 2)
}

func (s *FinalizationState) sqrtOfTotalDeposits() ufp64.UFP64 {
	deposits := s.curDynDeposits
	if s.prevDynDeposits > deposits {
		deposits = s.prevDynDeposits
	}
	total := 1 + ufp64.MulToUint(s.depositScaleFactor[s.currentEpoch-1], deposits)
	return ufp64.SqrtUint(total)
}

// instaJustify justifies the previous epoch without votes. It bootstraps
// finality while no validator set is active.
func (s *FinalizationState) instaJustify() {
	prev := s.currentEpoch - 1
	s.mutableCheckpoint(prev).Justified = true
	s.lastJustifiedEpoch = prev
	s.mainHashJustified = true

	if beforePrev, ok := prev.SafeSub(1); ok && s.checkpoints[beforePrev].Justified {
		s.mutableCheckpoint(beforePrev).Finalized = true
		s.lastFinalizedEpoch = beforePrev
	}
}

// incrementDynasty starts a new dynasty once the checkpoint three epochs back
// is finalized, applying the deposit changes scheduled for it.
func (s *FinalizationState) incrementDynasty() {
	if finalityEpoch, ok := s.currentEpoch.SafeSub(3); ok && s.checkpoints[finalityEpoch].Finalized {
		s.currentDynasty = s.currentDynasty.Add(1)
		s.prevDynDeposits = s.curDynDeposits
		s.curDynDeposits = applyDelta(s.curDynDeposits, s.dynastyDeltas[s.currentDynasty])
		s.setDynastyStartEpoch(s.currentDynasty, s.currentEpoch)
		log.WithFields(logrus.Fields{
			"dynasty":  s.currentDynasty,
			"epoch":    s.currentEpoch,
			"deposits": s.curDynDeposits,
		}).Debug("Incremented dynasty")
	}
	if s.mainHashJustified {
		s.expectedSourceEpoch = s.currentEpoch - 1
	}
	s.mainHashJustified = false
}

func applyDelta(amount uint64, delta int64) uint64 {
	if delta < 0 {
		if uint64(-delta) > amount {
			panic("dynasty deposits cannot become negative")
		}
		return amount - uint64(-delta)
	}
	return amount + uint64(delta)
}
