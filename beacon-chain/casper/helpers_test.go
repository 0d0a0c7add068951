package casper

import (
	"testing"

	"github.com/esperanzalabs/esperanza/config/params"
	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const minDeposit = 10_000 * params.Unit

func testnetState() *FinalizationState {
	return NewFinalizationState(params.TestnetConfig(), nil)
}

func validatorAddr(b byte) common.Address {
	return common.BytesToAddress([]byte{0xff, b})
}

// initEpochs opens the next n epochs.
func initEpochs(t *testing.T, s *FinalizationState, n int) {
	for i := 0; i < n; i++ {
		next := uint32(s.CurrentEpoch()+1) * s.Config().EpochLength
		require.NoError(t, s.InitializeEpoch(primitives.Height(next)))
	}
}

func deposit(t *testing.T, s *FinalizationState, addr common.Address, amount uint64) {
	require.NoError(t, s.ValidateDeposit(addr, amount))
	s.ProcessDeposit(addr, amount)
}

// expectedVote is the vote an honest validator casts in the current epoch.
func expectedVote(s *FinalizationState, addr common.Address) *Vote {
	hash, _ := s.RecommendedTarget()
	return &Vote{
		Validator:   addr,
		TargetHash:  hash,
		SourceEpoch: s.ExpectedSourceEpoch(),
		TargetEpoch: s.CurrentEpoch(),
	}
}

// activeValidatorState returns a state at epoch 4 where addr is in the
// validator set of dynasty 2.
func activeValidatorState(t *testing.T, addr common.Address) *FinalizationState {
	s := testnetState()
	deposit(t, s, addr, minDeposit)
	initEpochs(t, s, 4)
	return s
}

func requireResult(t *testing.T, want Result, err error) {
	require.Error(t, err)
	got, ok := ResultOf(err)
	require.True(t, ok, "not a validation error: %v", err)
	require.Equal(t, want, got, err.Error())
}
