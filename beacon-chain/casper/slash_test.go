package casper

import (
	"testing"

	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doubleVote(s *FinalizationState, addr common.Address) (*Vote, *Vote) {
	a := expectedVote(s, addr)
	b := expectedVote(s, addr)
	b.TargetHash = common.Hash{0xbb}
	return a, b
}

func TestIsSlashable(t *testing.T) {
	addr := validatorAddr(1)
	s := activeValidatorState(t, addr)
	a, b := doubleVote(s, addr)

	other := *b
	other.Validator = validatorAddr(2)
	requireResult(t, SlashNotSameValidator, s.IsSlashable(a, &other))

	unknownA, unknownB := doubleVote(s, validatorAddr(9))
	requireResult(t, SlashNotValidator, s.IsSlashable(unknownA, unknownB))

	requireResult(t, SlashSameVote, s.IsSlashable(a, a))

	honest := *a
	honest.SourceEpoch = 2
	honest.TargetEpoch = 3
	requireResult(t, SlashNotValid, s.IsSlashable(a, &honest))

	require.NoError(t, s.IsSlashable(a, b))
	s.ProcessSlash(a, b)
	requireResult(t, SlashAlreadySlashed, s.IsSlashable(a, b))
}

func TestProcessSlash(t *testing.T) {
	addr := validatorAddr(1)
	s := activeValidatorState(t, addr)
	a, b := doubleVote(s, addr)

	bounty := s.ProcessSlash(a, b)
	assert.Equal(t, minDeposit/25, bounty)
	assert.Equal(t, minDeposit, s.TotalSlashed(s.CurrentEpoch()))

	v := s.Validator(addr)
	assert.True(t, v.Slashed)
	assert.Equal(t, primitives.Dynasty(3), v.EndDynasty)
	assert.Equal(t, minDeposit, v.DepositsAtLogout)

	initEpochs(t, s, 1)
	assert.Equal(t, primitives.Dynasty(3), s.CurrentDynasty())
	assert.Equal(t, 0, s.ActiveValidators())
	assert.Equal(t, uint64(0), s.CurDynastyDeposits())
	assert.Equal(t, minDeposit, s.TotalSlashed(s.CurrentEpoch()), "slashed totals carry over")
}

func TestProcessSlash_CancelsScheduledLogout(t *testing.T) {
	addr := validatorAddr(1)
	s := activeValidatorState(t, addr)
	s.ProcessLogout(addr)
	a, b := doubleVote(s, addr)
	s.ProcessSlash(a, b)
	assert.Equal(t, primitives.Dynasty(3), s.Validator(addr).EndDynasty)

	// Dynasty deposits must reach zero once and never go negative at the
	// dynasty the logout had been scheduled for.
	for s.CurrentDynasty() < 8 {
		initEpochs(t, s, 1)
	}
	assert.Equal(t, uint64(0), s.CurDynastyDeposits())
}

func TestProcessSlash_BeforeActivation(t *testing.T) {
	active, pending := validatorAddr(1), validatorAddr(2)
	s := activeValidatorState(t, active)
	deposit(t, s, pending, minDeposit)
	a, b := doubleVote(s, pending)
	require.NoError(t, s.IsSlashable(a, b))
	s.ProcessSlash(a, b)

	for s.CurrentDynasty() < 6 {
		s.ProcessVote(expectedVote(s, active))
		initEpochs(t, s, 1)
	}
	assert.Equal(t, s.Validator(active).Deposit, s.CurDynastyDeposits())
	assert.False(t, s.Validator(pending).IsInDynasty(s.CurrentDynasty()))
}
