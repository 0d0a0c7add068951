package casper

import (
	"testing"

	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/esperanzalabs/esperanza/math/ufp64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFinalizationState_Genesis(t *testing.T) {
	s := testnetState()
	cp := s.Checkpoint(0)
	require.NotNil(t, cp)
	assert.True(t, cp.Justified)
	assert.True(t, cp.Finalized)
	f, ok := s.DepositScaleFactor(0)
	require.True(t, ok)
	assert.Equal(t, ufp64.Unit, f)
	assert.Equal(t, StatusNew, s.Status())
	assert.True(t, s.IsFinalizedCheckpoint(0))
}

func TestInitializeEpoch_WrongHeight(t *testing.T) {
	s := testnetState()
	for _, h := range []primitives.Height{0, 49, 51, 100} {
		requireResult(t, InitWrongEpoch, s.InitializeEpoch(h))
	}
	require.NoError(t, s.InitializeEpoch(50))
	requireResult(t, InitWrongEpoch, s.InitializeEpoch(50))
	assert.Equal(t, primitives.Epoch(1), s.CurrentEpoch())
}

func TestInitializeEpoch_DepositActivatesAfterTwoDynasties(t *testing.T) {
	addr := validatorAddr(1)
	s := activeValidatorState(t, addr)

	assert.Equal(t, primitives.Epoch(4), s.CurrentEpoch())
	assert.Equal(t, primitives.Dynasty(2), s.CurrentDynasty())
	v := s.Validator(addr)
	require.NotNil(t, v)
	assert.True(t, v.IsInDynasty(s.CurrentDynasty()))
	assert.Equal(t, 1, s.ActiveValidators())
	assert.Equal(t, minDeposit, s.CurDynastyDeposits())
}

func TestInitializeEpoch_InstaJustifiesWithoutDeposits(t *testing.T) {
	s := testnetState()
	initEpochs(t, s, 3)

	assert.Equal(t, primitives.Epoch(2), s.LastJustifiedEpoch())
	assert.Equal(t, primitives.Epoch(1), s.LastFinalizedEpoch())
	assert.Equal(t, primitives.Epoch(2), s.ExpectedSourceEpoch())
	assert.Equal(t, primitives.Dynasty(1), s.CurrentDynasty())
	assert.True(t, s.IsJustifiedCheckpoint(99))
	assert.True(t, s.IsFinalizedCheckpoint(49))
	assert.False(t, s.IsFinalizedCheckpoint(50), "not a checkpoint height")
	for e := primitives.Epoch(0); e <= s.CurrentEpoch(); e++ {
		_, ok := s.DepositScaleFactor(e)
		assert.True(t, ok, "deposit scale factor of epoch %d", e)
	}
	assert.True(t, s.LastFinalizedEpoch() <= s.LastJustifiedEpoch())
	assert.True(t, s.LastJustifiedEpoch() <= s.CurrentEpoch())
}

func TestInitializeEpoch_RewardFactorOnceBothDynastiesHaveDeposits(t *testing.T) {
	addr := validatorAddr(1)
	s := activeValidatorState(t, addr)
	assert.Equal(t, ufp64.UFP64(0), s.RewardFactor())

	require.NoError(t, s.ValidateVote(expectedVote(s, addr)))
	s.ProcessVote(expectedVote(s, addr))
	initEpochs(t, s, 1)

	// The previous dynasty is filled by the dynasty change, after the
	// reward factor of the epoch was set.
	assert.Equal(t, primitives.Dynasty(3), s.CurrentDynasty())
	assert.Equal(t, s.CurDynastyDeposits(), s.PrevDynastyDeposits())
	assert.Equal(t, ufp64.UFP64(0), s.RewardFactor())

	require.NoError(t, s.ValidateVote(expectedVote(s, addr)))
	s.ProcessVote(expectedVote(s, addr))
	initEpochs(t, s, 1)
	assert.True(t, s.RewardFactor() > 0)
}

func TestSetStatus_NeverDowngrades(t *testing.T) {
	s := testnetState()
	s.SetStatus(StatusFromCommits)
	s.SetStatus(StatusCompleted)
	assert.Equal(t, StatusCompleted, s.Status())
	assert.Panics(t, func() { s.SetStatus(StatusNew) })
	assert.Equal(t, StatusNew, s.Copy().Status())
}

func TestCopy_IsolatesForks(t *testing.T) {
	a, b := validatorAddr(1), validatorAddr(2)
	parent := activeValidatorState(t, a)

	child := parent.Copy()
	deposit(t, child, b, minDeposit)
	child.ProcessVote(expectedVote(child, a))

	assert.Nil(t, parent.Validator(b))
	assert.False(t, parent.Checkpoint(parent.CurrentEpoch()).HasVoted(a))
	assert.True(t, child.Checkpoint(child.CurrentEpoch()).HasVoted(a))
	assert.NotNil(t, child.Validator(b))

	// Writes to the parent after the copy stay out of the child as well.
	sibling := parent.Copy()
	parent.ProcessLogout(a)
	assert.True(t, parent.Validator(a).HasLoggedOut())
	assert.False(t, sibling.Validator(a).HasLoggedOut())
	assert.False(t, child.Validator(a).HasLoggedOut())
}

func TestCopy_OfCopyEqualsOriginal(t *testing.T) {
	s := activeValidatorState(t, validatorAddr(1))
	c := s.Copy().Copy()
	assert.True(t, s.Equal(c))
	initEpochs(t, c, 1)
	assert.False(t, s.Equal(c))
}
