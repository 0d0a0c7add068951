package simulator

import (
	"github.com/esperanzalabs/esperanza/beacon-chain/casper"
	"github.com/esperanzalabs/esperanza/beacon-chain/state/stategen"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// generateBlock returns the next block on top of the state of its parent.
// Every commit is checked against a scratch copy of the state so that the
// block is valid. It also returns the validators slashed by the block.
func (s *Simulator) generateBlock(st *casper.FinalizationState, index *stategen.BlockIndex) (*stategen.Block, []common.Address) {
	scratch := st.Copy()
	height := index.Height
	if height > 0 && scratch.IsEpochStart(height) {
		if err := scratch.InitializeEpoch(height); err != nil {
			log.WithError(err).Error("Could not open epoch on scratch state")
			return &stategen.Block{Index: index}, nil
		}
	}

	var commits []casper.Commit
	next := func() common.Hash {
		return txHash(index.Hash, len(commits))
	}
	minDeposit := scratch.Config().MinDepositSize

	if height == 1 {
		for _, addr := range s.validators {
			if err := scratch.ValidateDeposit(addr, minDeposit); err != nil {
				log.WithError(err).Warn("Skipping deposit")
				continue
			}
			scratch.ProcessDeposit(addr, minDeposit)
			commits = append(commits, &casper.DepositCommit{Hash: next(), Validator: addr, Amount: minDeposit})
		}
	}

	var slashed []common.Address
	if s.cfg.Pool != nil {
		for _, evidence := range s.cfg.Pool.PendingSlashings(false) {
			a, b := evidence.Candidate.Vote, evidence.Existing.Vote
			if err := scratch.IsSlashable(&a, &b); err != nil {
				log.WithError(err).Debug("Dropping pending slashing")
				continue
			}
			scratch.ProcessSlash(&a, &b)
			commits = append(commits, &casper.SlashCommit{Hash: next(), Vote1: &a, Vote2: &b})
			slashed = append(slashed, a.Validator)
		}
	}

	if !scratch.IsEpochStart(height) {
		target, _ := scratch.RecommendedTarget()
		for _, addr := range s.validators {
			if v := scratch.Validator(addr); v == nil || v.Slashed {
				continue
			}
			vote := &casper.Vote{
				Validator:   addr,
				TargetHash:  target,
				SourceEpoch: scratch.ExpectedSourceEpoch(),
				TargetEpoch: scratch.CurrentEpoch(),
			}
			if err := scratch.ValidateVote(vote); err != nil {
				continue
			}
			scratch.ProcessVote(vote)
			commits = append(commits, &casper.VoteCommit{Hash: next(), Vote: vote, Signature: sign(vote)})
		}
	}

	params := s.cfg.Params
	if params.LogoutEpoch > 0 && scratch.CurrentEpoch() >= params.LogoutEpoch && len(s.validators) > 0 {
		addr := s.validators[len(s.validators)-1]
		if err := scratch.ValidateLogout(addr); err == nil {
			scratch.ProcessLogout(addr)
			commits = append(commits, &casper.LogoutCommit{Hash: next(), Validator: addr})
			log.WithFields(logrus.Fields{
				"validator": addr.Hex(),
				"epoch":     scratch.CurrentEpoch(),
			}).Info("Validator logs out")
		}
	}

	for _, addr := range s.validators {
		v := scratch.Validator(addr)
		if v == nil || !v.HasLoggedOut() || v.Withdrawn {
			continue
		}
		amount, err := scratch.CalculateWithdrawAmount(addr)
		if err != nil {
			continue
		}
		if err := scratch.ValidateWithdraw(addr, amount); err != nil {
			continue
		}
		scratch.ProcessWithdraw(addr, amount)
		commits = append(commits, &casper.WithdrawCommit{Hash: next(), Validator: addr, Amount: amount})
		log.WithFields(logrus.Fields{
			"validator": addr.Hex(),
			"amount":    amount,
		}).Info("Validator withdraws")
	}

	return &stategen.Block{Index: index, Commits: commits}, slashed
}

// conflictingVote returns a vote of the block contradicting the first vote
// in it for the double vote epoch, or nil.
func (s *Simulator) conflictingVote(block *stategen.Block, fork common.Hash) *casper.Vote {
	epoch := s.cfg.Params.DoubleVoteEpoch
	if epoch == 0 || s.doubleVoted {
		return nil
	}
	for _, c := range block.Commits {
		vc, ok := c.(*casper.VoteCommit)
		if !ok || vc.Vote.TargetEpoch != epoch {
			continue
		}
		conflicting := *vc.Vote
		conflicting.TargetHash = fork
		return &conflicting
	}
	return nil
}
