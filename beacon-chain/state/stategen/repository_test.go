package stategen

import (
	"bytes"
	"context"
	"sort"
	"testing"

	"github.com/esperanzalabs/esperanza/beacon-chain/casper"
	dbtest "github.com/esperanzalabs/esperanza/beacon-chain/db/testing"
	"github.com/esperanzalabs/esperanza/config/params"
	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_Genesis(t *testing.T) {
	repo, genesis := newRepository()
	st := repo.Find(genesis)
	require.NotNil(t, st)
	assert.Equal(t, casper.StatusCompleted, st.Status())
	assert.Equal(t, 1, repo.Len())
	assert.Equal(t, genesis, repo.Root())
	assert.Nil(t, repo.Find(nil))
}

func TestRepository_FindOrCreate(t *testing.T) {
	repo, genesis := newRepository()
	child := NewChildIndex(genesis, hashOf(1, 1))

	st := repo.FindOrCreate(child, casper.StatusCompleted)
	require.NotNil(t, st)
	assert.Equal(t, casper.StatusNew, st.Status())
	assert.True(t, st.Equal(repo.Find(genesis)))
	assert.Same(t, st, repo.FindOrCreate(child, casper.StatusCompleted))
	assert.Same(t, st, repo.Find(child))

	grandchild := NewChildIndex(child, hashOf(1, 2))
	assert.Nil(t, repo.FindOrCreate(grandchild, casper.StatusFromCommits))
	assert.NotNil(t, repo.FindOrCreate(grandchild, casper.StatusNew))

	orphan := NewChildIndex(NewChildIndex(genesis, hashOf(2, 1)), hashOf(2, 2))
	assert.Nil(t, repo.FindOrCreate(orphan, casper.StatusNew))
	assert.Nil(t, repo.FindOrCreate(nil, casper.StatusNew))
}

func TestRepository_ApplyFailureLeavesNoEntry(t *testing.T) {
	repo, genesis := newRepository()
	child := NewChildIndex(genesis, hashOf(1, 1))
	bad := &casper.DepositCommit{Validator: finalizer, Amount: 1}

	_, err := repo.apply(child, casper.StatusFromCommits, casper.StatusFromCommits, build(child, bad))
	require.Error(t, err)
	r, ok := casper.ResultOf(err)
	require.True(t, ok)
	assert.Equal(t, casper.DepositInsufficient, r)
	assert.Nil(t, repo.Find(child))
	assert.Equal(t, 1, repo.Len())

	// A state created before the failed build survives it.
	existing := repo.FindOrCreate(child, casper.StatusNew)
	_, err = repo.apply(child, casper.StatusFromCommits, casper.StatusFromCommits, build(child, bad))
	require.Error(t, err)
	assert.Same(t, existing, repo.Find(child))
}

func TestRepository_MissingAncestor(t *testing.T) {
	repo, genesis := newRepository()
	a1 := NewChildIndex(genesis, hashOf(1, 1))
	a2 := NewChildIndex(a1, hashOf(1, 2))

	_, err := repo.apply(a2, casper.StatusFromCommits, casper.StatusFromCommits, build(a2))
	assert.True(t, errors.Is(err, ErrMissingAncestor))

	_, err = repo.apply(a1, casper.StatusFromCommits, casper.StatusFromCommits, build(a1))
	require.NoError(t, err)
	_, err = repo.apply(a2, casper.StatusCompleted, casper.StatusCompleted, build(a2))
	assert.True(t, errors.Is(err, ErrMissingAncestor))
	assert.Nil(t, repo.Find(a2))

	_, err = repo.apply(genesis, casper.StatusCompleted, casper.StatusCompleted, build(genesis))
	require.NoError(t, err, "genesis is already completed")
}

func TestRepository_ForksAreIsolated(t *testing.T) {
	repo, genesis := newRepository()
	a1 := NewChildIndex(genesis, hashOf(1, 1))
	b1 := NewChildIndex(genesis, hashOf(2, 1))

	stA, err := repo.apply(a1, casper.StatusCompleted, casper.StatusCompleted, build(a1, depositCommit(1)))
	require.NoError(t, err)
	stB, err := repo.apply(b1, casper.StatusCompleted, casper.StatusCompleted, build(b1))
	require.NoError(t, err)

	assert.NotNil(t, stA.Validator(finalizer))
	assert.Nil(t, stB.Validator(finalizer))
	assert.Nil(t, repo.Find(genesis).Validator(finalizer))
	assert.Equal(t, casper.StatusCompleted, stA.Status())
}

func TestRepository_Confirm(t *testing.T) {
	repo, genesis := newRepository()
	a1 := NewChildIndex(genesis, hashOf(1, 1))

	fromCommits, err := repo.apply(a1, casper.StatusFromCommits, casper.StatusFromCommits, build(a1, depositCommit(1)))
	require.NoError(t, err)
	assert.Equal(t, casper.StatusFromCommits, fromCommits.Status())

	// A full block that disagrees with its commits is rejected.
	_, err = repo.apply(a1, casper.StatusCompleted, casper.StatusCompleted, build(a1))
	assert.True(t, errors.Is(err, ErrStateMismatch))
	assert.Same(t, fromCommits, repo.Find(a1))

	completed, err := repo.apply(a1, casper.StatusCompleted, casper.StatusCompleted, build(a1, depositCommit(1)))
	require.NoError(t, err)
	assert.Equal(t, casper.StatusCompleted, completed.Status())
	assert.Equal(t, casper.StatusFromCommits, fromCommits.Status(), "superseded state is not modified")
	assert.Same(t, completed, repo.Find(a1))

	again, err := repo.apply(a1, casper.StatusCompleted, casper.StatusCompleted, build(a1))
	require.NoError(t, err)
	assert.Same(t, completed, again)

	// Confirming an untracked block stores the state as is.
	b1 := NewChildIndex(genesis, hashOf(2, 1))
	st := repo.Find(genesis).Copy()
	require.NoError(t, repo.Confirm(b1, st))
	assert.Equal(t, casper.StatusCompleted, repo.Find(b1).Status())
}

func TestRepository_TrimUntilHeight(t *testing.T) {
	repo, genesis := newRepository()
	a1 := NewChildIndex(genesis, hashOf(1, 1))
	a2 := NewChildIndex(a1, hashOf(1, 2))
	a3 := NewChildIndex(a2, hashOf(1, 3))
	b1 := NewChildIndex(genesis, hashOf(2, 1))
	c2 := NewChildIndex(a1, hashOf(3, 2))
	c3 := NewChildIndex(c2, hashOf(3, 3))
	for _, idx := range []*BlockIndex{a1, a2, a3, b1, c2, c3} {
		_, err := repo.apply(idx, casper.StatusCompleted, casper.StatusCompleted, build(idx))
		require.NoError(t, err)
	}

	dropped := repo.TrimUntilHeight(3)
	assert.Equal(t, []common.Hash{b1.Hash}, dropped)
	for _, idx := range []*BlockIndex{genesis, a1, a2, a3, c2, c3} {
		assert.NotNil(t, repo.Find(idx), idx.String())
	}
	assert.Nil(t, repo.Find(b1))

	// Trimming above the active tip keeps the tip and its ancestors.
	repo.SetTip(a3)
	dropped = repo.TrimUntilHeight(10)
	expected := []common.Hash{c2.Hash, c3.Hash}
	sort.Slice(expected, func(i, j int) bool {
		return bytes.Compare(expected[i].Bytes(), expected[j].Bytes()) < 0
	})
	assert.Equal(t, expected, dropped)
	assert.Equal(t, 4, repo.Len())
	for _, idx := range []*BlockIndex{genesis, a1, a2, a3} {
		assert.NotNil(t, repo.Find(idx), idx.String())
	}
	assert.Nil(t, repo.Find(c3))

	// Without an active tip above the root everything below height goes.
	repo.SetTip(genesis)
	dropped = repo.TrimUntilHeight(10)
	assert.Len(t, dropped, 3)
	assert.Equal(t, 1, repo.Len())
	assert.NotNil(t, repo.Find(genesis))
}

func TestRepository_Tips(t *testing.T) {
	repo, genesis := newRepository()
	a1 := NewChildIndex(genesis, hashOf(1, 1))
	a2 := NewChildIndex(a1, hashOf(1, 2))
	b1 := NewChildIndex(genesis, hashOf(2, 1))
	for _, idx := range []*BlockIndex{a1, a2, b1} {
		_, err := repo.apply(idx, casper.StatusFromCommits, casper.StatusFromCommits, build(idx))
		require.NoError(t, err)
	}
	assert.Equal(t, []*BlockIndex{a2, b1}, repo.Tips())

	info := repo.ChainInfo(a2)
	require.NotNil(t, info)
	assert.Equal(t, casper.StatusFromCommits, info.Status)
	assert.Equal(t, primitives.Epoch(0), info.CurrentEpoch)
	assert.Nil(t, repo.ChainInfo(NewChildIndex(a2, hashOf(1, 3))))
}

func TestRepository_ResetToTip(t *testing.T) {
	repo, genesis := newRepository()
	a1 := NewChildIndex(genesis, hashOf(1, 1))
	_, err := repo.apply(a1, casper.StatusCompleted, casper.StatusCompleted, build(a1, depositCommit(1)))
	require.NoError(t, err)

	tip := &BlockIndex{Hash: hashOf(9, 100), Height: 100}
	repo.ResetToTip(tip)
	assert.Equal(t, 1, repo.Len())
	assert.Equal(t, tip, repo.Root())
	st := repo.Find(tip)
	require.NotNil(t, st)
	assert.Equal(t, casper.StatusCompleted, st.Status())
	assert.Nil(t, st.Validator(finalizer))
	assert.Nil(t, repo.Find(a1))

	next := NewChildIndex(tip, hashOf(9, 101))
	_, err = repo.apply(next, casper.StatusCompleted, casper.StatusCompleted, build(next))
	require.NoError(t, err)
}

func TestRepository_RestoreEmptyStore(t *testing.T) {
	db := dbtest.SetupDB(t, params.RegtestConfig(), nil)
	repo, genesis := newRepository()
	tip, err := repo.Restore(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, genesis, tip)
	assert.Equal(t, 1, repo.Len())
}
