package casper

import (
	"github.com/esperanzalabs/esperanza/math/ufp64"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// ValidateVote checks a vote against the current epoch and validator set.
func (s *FinalizationState) ValidateVote(vote *Vote) error {
	v, ok := s.validators[vote.Validator]
	if !ok {
		return fail(VoteNotByValidator, "%s is not a validator", vote.Validator.Hex())
	}
	if !s.isVotable(v) {
		return fail(VoteNotVotable, "validator %s is not in dynasty %d or the one before", vote.Validator.Hex(), s.currentDynasty)
	}
	if cp, ok := s.checkpoints[vote.TargetEpoch]; ok && cp.HasVoted(vote.Validator) {
		return fail(VoteAlreadyVoted, "validator %s already voted for epoch %d", vote.Validator.Hex(), vote.TargetEpoch)
	}
	if vote.TargetHash != s.recommendedTargetHash {
		return fail(VoteWrongTargetHash, "target %s is not the recommended %s",
			vote.TargetHash.TerminalString(), s.recommendedTargetHash.TerminalString())
	}
	if vote.TargetEpoch != s.currentEpoch {
		return fail(VoteWrongTargetEpoch, "target epoch %d is not the current epoch %d", vote.TargetEpoch, s.currentEpoch)
	}
	if src, ok := s.checkpoints[vote.SourceEpoch]; !ok || !src.Justified {
		return fail(VoteSrcEpochNotJustified, "source epoch %d is not justified", vote.SourceEpoch)
	}
	return nil
}

func (s *FinalizationState) isVotable(v *Validator) bool {
	return v.IsInDynasty(s.currentDynasty) || s.inPrevDynasty(v)
}

func (s *FinalizationState) inPrevDynasty(v *Validator) bool {
	return s.currentDynasty > 0 && v.IsInDynasty(s.currentDynasty-1)
}

// ProcessVote counts a valid vote, rewards the voter when the vote uses the
// expected source and justifies, or finalizes, checkpoints reaching two
// thirds of both validator sets.
func (s *FinalizationState) ProcessVote(vote *Vote) {
	v := s.validators[vote.Validator]
	src, target := vote.SourceEpoch, vote.TargetEpoch

	cp := s.mutableCheckpoint(target)
	cp.VoteSet[vote.Validator] = struct{}{}

	curVotes := cp.CurDynastyVotes[src]
	prevVotes := cp.PrevDynastyVotes[src]
	if v.IsInDynasty(s.currentDynasty) {
		curVotes += v.Deposit
		cp.CurDynastyVotes[src] = curVotes
	}
	if s.inPrevDynasty(v) {
		prevVotes += v.Deposit
		cp.PrevDynastyVotes[src] = prevVotes
	}

	if src == s.expectedSourceEpoch {
		s.processReward(vote.Validator, ufp64.MulToUint(s.rewardFactor, v.Deposit))
	}

	if cp.Justified || curVotes < s.curDynDeposits*2/3 || prevVotes < s.prevDynDeposits*2/3 {
		return
	}
	cp.Justified = true
	s.lastJustifiedEpoch = target
	s.mainHashJustified = true
	fields := logrus.Fields{"epoch": target, "source": src}
	if target == src+1 {
		s.mutableCheckpoint(src).Finalized = true
		s.lastFinalizedEpoch = src
		fields["finalized"] = src
	}
	log.WithFields(fields).Debug("Justified checkpoint")
}

func (s *FinalizationState) processReward(addr common.Address, reward uint64) {
	v := s.mutableValidator(addr)
	v.Deposit += reward
	if v.IsInDynasty(s.currentDynasty) {
		s.curDynDeposits += reward
	}
	if s.inPrevDynasty(v) {
		s.prevDynDeposits += reward
	}
	if v.HasLoggedOut() {
		s.addDynastyDelta(v.EndDynasty, -int64(reward))
	}
}
