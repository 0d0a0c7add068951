package casper

import (
	"testing"

	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateLogout(t *testing.T) {
	addr, pending := validatorAddr(1), validatorAddr(2)
	s := activeValidatorState(t, addr)
	deposit(t, s, pending, minDeposit)

	requireResult(t, LogoutNotAValidator, s.ValidateLogout(validatorAddr(9)))
	requireResult(t, LogoutNotYetAValidator, s.ValidateLogout(pending))
	require.NoError(t, s.ValidateLogout(addr))
	s.ProcessLogout(addr)
	requireResult(t, LogoutAlreadyDone, s.ValidateLogout(addr))
}

func TestProcessLogout_EndDynasty(t *testing.T) {
	addr := validatorAddr(1)
	s := activeValidatorState(t, addr)
	require.Equal(t, primitives.Dynasty(2), s.CurrentDynasty())

	require.NoError(t, s.ValidateLogout(addr))
	s.ProcessLogout(addr)

	v := s.Validator(addr)
	assert.Equal(t, primitives.Dynasty(7), v.EndDynasty)
	assert.Equal(t, minDeposit, v.DepositsAtLogout)
	assert.True(t, v.IsInDynasty(6))
	assert.False(t, v.IsInDynasty(7))
}

func TestProcessLogout_LeavesValidatorSet(t *testing.T) {
	addr := validatorAddr(1)
	s := activeValidatorState(t, addr)
	s.ProcessLogout(addr)

	// The validator still votes with the previous validator set in dynasty 7.
	for s.CurrentDynasty() < 8 {
		if s.isVotable(s.validators[addr]) {
			s.ProcessVote(expectedVote(s, addr))
		}
		initEpochs(t, s, 1)
	}
	assert.Equal(t, 0, s.ActiveValidators())
	assert.Equal(t, uint64(0), s.CurDynastyDeposits())
	requireResult(t, VoteNotVotable, s.ValidateVote(expectedVote(s, addr)))
}
