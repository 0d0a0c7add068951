package kv

import (
	"context"
	"os"
	"testing"

	"github.com/esperanzalabs/esperanza/beacon-chain/casper"
	"github.com/esperanzalabs/esperanza/config/params"
	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chainState returns a regtest state advanced to height with one deposit.
func chainState(t *testing.T, height primitives.Height) *casper.FinalizationState {
	s := casper.NewFinalizationState(params.RegtestConfig(), nil)
	require.NoError(t, s.ProcessNewCommits(1, common.Hash{1}, []casper.Commit{
		&casper.DepositCommit{
			Hash:      common.Hash{0xde},
			Validator: common.HexToAddress("0x01"),
			Amount:    params.RegtestConfig().MinDepositSize,
		},
	}))
	for h := primitives.Height(2); h <= height; h++ {
		require.NoError(t, s.ProcessNewCommits(h, common.BytesToHash([]byte{byte(h)}), nil))
	}
	return s
}

func TestStore_FinalizationState_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, err := NewKVStore(ctx, dir, testConfig())
	require.NoError(t, err)

	st := chainState(t, 12)
	summary := &StateSummary{Hash: common.Hash{0xaa}, Height: 12, Parent: common.Hash{0xab}}
	require.NoError(t, db.SaveFinalizationState(ctx, summary, st))
	assert.True(t, db.HasFinalizationState(ctx, summary.Hash))
	require.NoError(t, db.Close())

	// A reopened store has an empty cache and decodes from disk.
	db, err = NewKVStore(ctx, dir, testConfig())
	require.NoError(t, err)
	defer func() {
		require.NoError(t, db.Close())
	}()
	got, err := db.FinalizationState(ctx, summary.Hash)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, st.Equal(got))
	assert.Equal(t, primitives.Epoch(2), got.CurrentEpoch())
	assert.Equal(t, casper.StatusNew, got.Status())

	gotSummary, err := db.StateSummary(ctx, summary.Hash)
	require.NoError(t, err)
	assert.Equal(t, summary, gotSummary)
}

func TestStore_FinalizationState_Missing(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	got, err := db.FinalizationState(ctx, common.Hash{0x01})
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, db.HasFinalizationState(ctx, common.Hash{0x01}))
	summary, err := db.StateSummary(ctx, common.Hash{0x01})
	require.NoError(t, err)
	assert.Nil(t, summary)
}

func TestStore_FinalizationState_CachedCopiesAreIndependent(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	st := chainState(t, 4)
	hash := common.Hash{0x04}
	require.NoError(t, db.SaveFinalizationState(ctx, &StateSummary{Hash: hash, Height: 4}, st))

	first, err := db.FinalizationState(ctx, hash)
	require.NoError(t, err)
	require.NoError(t, first.ProcessNewCommits(5, common.Hash{0x05}, nil))

	second, err := db.FinalizationState(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, primitives.Epoch(0), second.CurrentEpoch())
	assert.Equal(t, primitives.Epoch(1), first.CurrentEpoch())
	assert.True(t, st.Equal(second))
}

func TestStore_StateSummaries_AndDelete(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	st := chainState(t, 1)
	summaries := []*StateSummary{
		{Hash: common.Hash{0x03}, Height: 2, Parent: common.Hash{0x01}},
		{Hash: common.Hash{0x01}, Height: 1},
		{Hash: common.Hash{0x02}, Height: 2, Parent: common.Hash{0x01}},
	}
	for _, s := range summaries {
		require.NoError(t, db.SaveFinalizationState(ctx, s, st))
	}
	got, err := db.StateSummaries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []*StateSummary{summaries[1], summaries[2], summaries[0]}, got)

	require.NoError(t, db.DeleteFinalizationStates(ctx, []common.Hash{{0x02}, {0x09}}))
	assert.False(t, db.HasFinalizationState(ctx, common.Hash{0x02}))
	got, err = db.StateSummaries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []*StateSummary{summaries[1], summaries[0]}, got)
}

func TestStore_TipHash_AndBackup(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)

	tip, err := db.TipHash(ctx)
	require.NoError(t, err)
	assert.Equal(t, common.Hash{}, tip)
	_, err = db.Backup(ctx)
	require.Error(t, err)

	hash := common.Hash{0x07}
	require.NoError(t, db.SaveFinalizationState(ctx, &StateSummary{Hash: hash, Height: 7}, chainState(t, 7)))
	require.NoError(t, db.SaveTipHash(ctx, hash))
	tip, err = db.TipHash(ctx)
	require.NoError(t, err)
	assert.Equal(t, hash, tip)

	path, err := db.Backup(ctx)
	require.NoError(t, err)
	assert.Contains(t, path, "esperanza_db_at_height_0000007.backup")
	_, err = os.Stat(path)
	require.NoError(t, err)
}
