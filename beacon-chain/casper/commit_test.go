package casper

import (
	"testing"

	"github.com/esperanzalabs/esperanza/config/params"
	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blockHash(h primitives.Height) common.Hash {
	return common.BytesToHash([]byte{0xee, byte(h >> 8), byte(h)})
}

func TestProcessNewCommits_Chain(t *testing.T) {
	cfg := params.RegtestConfig()
	s := NewFinalizationState(cfg, nil)
	addr := validatorAddr(1)

	var voted primitives.Epoch
	for h := primitives.Height(1); h <= 60; h++ {
		var commits []Commit
		switch {
		case h == 1:
			commits = append(commits, &DepositCommit{Hash: common.Hash{1}, Validator: addr, Amount: cfg.MinDepositSize})
		case s.Validator(addr).IsInDynasty(s.CurrentDynasty()) && voted != s.CurrentEpoch() && !s.IsEpochStart(h):
			commits = append(commits, &VoteCommit{Hash: common.Hash{byte(h)}, Vote: expectedVote(s, addr)})
			voted = s.CurrentEpoch()
		}
		require.NoError(t, s.ProcessNewCommits(h, blockHash(h), commits), "height %d", h)

		if s.IsCheckpoint(h) {
			hash, epoch := s.RecommendedTarget()
			assert.Equal(t, blockHash(h), hash)
			assert.Equal(t, s.GetEpoch(h)+1, epoch)
		}
	}

	assert.Equal(t, primitives.Epoch(12), s.CurrentEpoch())
	assert.Equal(t, primitives.Epoch(11), s.LastJustifiedEpoch())
	assert.Equal(t, primitives.Epoch(10), s.LastFinalizedEpoch())
	assert.NotEqual(t, common.Hash{1}, s.Validator(addr).LastTransactionHash)
	assert.True(t, s.IsFinalizedCheckpoint(s.GetEpochCheckpointHeight(10)))
}

func TestProcessNewCommits_RejectsInvalidCommit(t *testing.T) {
	cfg := params.RegtestConfig()
	s := NewFinalizationState(cfg, nil)
	err := s.ProcessNewCommits(1, blockHash(1), []Commit{
		&DepositCommit{Validator: validatorAddr(1), Amount: cfg.MinDepositSize - 1},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, DepositInsufficient))
	r, ok := ResultOf(err)
	require.True(t, ok)
	assert.Equal(t, DepositInsufficient, r)

	_, ok = ResultOf(errors.New("disk failure"))
	assert.False(t, ok)
}

func TestProcessNewCommits_InitializesEpochAtBoundary(t *testing.T) {
	s := NewFinalizationState(params.RegtestConfig(), nil)
	for h := primitives.Height(1); h < 5; h++ {
		require.NoError(t, s.ProcessNewCommits(h, blockHash(h), nil))
	}
	assert.Equal(t, primitives.Epoch(0), s.CurrentEpoch())
	require.NoError(t, s.ProcessNewCommits(5, blockHash(5), nil))
	assert.Equal(t, primitives.Epoch(1), s.CurrentEpoch())
}
