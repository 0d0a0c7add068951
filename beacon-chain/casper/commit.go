package casper

import (
	"fmt"

	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Commit is a finalization transaction extracted from a block. The set of
// implementations is closed.
type Commit interface {
	TxHash() common.Hash
	isCommit()
}

// DepositCommit makes Validator a finalizer with Amount at stake.
type DepositCommit struct {
	Hash      common.Hash
	Validator common.Address
	Amount    uint64
}

// VoteCommit carries a finalizer vote.
type VoteCommit struct {
	Hash      common.Hash
	Vote      *Vote
	Signature []byte
}

// LogoutCommit starts the departure of Validator.
type LogoutCommit struct {
	Hash      common.Hash
	Validator common.Address
}

// WithdrawCommit pays out the deposit of Validator.
type WithdrawCommit struct {
	Hash      common.Hash
	Validator common.Address
	Amount    uint64
}

// SlashCommit reports two contradicting votes.
type SlashCommit struct {
	Hash  common.Hash
	Vote1 *Vote
	Vote2 *Vote
}

func (c *DepositCommit) TxHash() common.Hash  { return c.Hash }
func (c *VoteCommit) TxHash() common.Hash     { return c.Hash }
func (c *LogoutCommit) TxHash() common.Hash   { return c.Hash }
func (c *WithdrawCommit) TxHash() common.Hash { return c.Hash }
func (c *SlashCommit) TxHash() common.Hash    { return c.Hash }

func (*DepositCommit) isCommit()  {}
func (*VoteCommit) isCommit()     {}
func (*LogoutCommit) isCommit()   {}
func (*WithdrawCommit) isCommit() {}
func (*SlashCommit) isCommit()    {}

// ProcessNewCommits applies the finalization commits of the block at height.
// The epoch is initialized first when the block opens one, and a checkpoint
// block becomes the recommended vote target. The first invalid commit aborts
// processing, the caller must then discard the state.
func (s *FinalizationState) ProcessNewCommits(height primitives.Height, hash common.Hash, commits []Commit) error {
	if height > 0 && s.IsEpochStart(height) {
		if err := s.InitializeEpoch(height); err != nil {
			return err
		}
	}
	for i, c := range commits {
		if err := s.applyCommit(c); err != nil {
			return errors.Wrapf(err, "commit %d (%s) at height %d", i, c.TxHash().TerminalString(), height)
		}
	}
	if s.IsCheckpoint(height) {
		s.recommendedTargetHash = hash
		s.recommendedTargetEpoch = s.GetEpoch(height) + 1
	}
	return nil
}

func (s *FinalizationState) applyCommit(commit Commit) error {
	switch c := commit.(type) {
	case *DepositCommit:
		if err := s.ValidateDeposit(c.Validator, c.Amount); err != nil {
			return err
		}
		s.ProcessDeposit(c.Validator, c.Amount)
		s.setLastTransaction(c.Validator, c.Hash)
	case *VoteCommit:
		if err := s.ValidateVote(c.Vote); err != nil {
			return err
		}
		s.ProcessVote(c.Vote)
		s.setLastTransaction(c.Vote.Validator, c.Hash)
	case *LogoutCommit:
		if err := s.ValidateLogout(c.Validator); err != nil {
			return err
		}
		s.ProcessLogout(c.Validator)
		s.setLastTransaction(c.Validator, c.Hash)
	case *WithdrawCommit:
		if err := s.ValidateWithdraw(c.Validator, c.Amount); err != nil {
			return err
		}
		s.ProcessWithdraw(c.Validator, c.Amount)
		s.setLastTransaction(c.Validator, c.Hash)
	case *SlashCommit:
		if err := s.IsSlashable(c.Vote1, c.Vote2); err != nil {
			return err
		}
		s.ProcessSlash(c.Vote1, c.Vote2)
	default:
		panic(fmt.Sprintf("unknown commit type %T", commit))
	}
	return nil
}

func (s *FinalizationState) setLastTransaction(addr common.Address, hash common.Hash) {
	s.mutableValidator(addr).LastTransactionHash = hash
}
