package slasher

import (
	"context"
	"testing"
	"time"

	"github.com/esperanzalabs/esperanza/beacon-chain/casper"
	"github.com/esperanzalabs/esperanza/beacon-chain/db/slasherkv"
	slashertypes "github.com/esperanzalabs/esperanza/beacon-chain/slasher/types"
	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validator = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func vote(hash byte, source, target primitives.Epoch) *casper.Vote {
	return &casper.Vote{
		Validator:   validator,
		TargetHash:  common.BytesToHash([]byte{hash}),
		SourceEpoch: source,
		TargetEpoch: target,
	}
}

func setupRecorder(t *testing.T) (*VoteRecorder, *slasherkv.Store) {
	db, err := slasherkv.NewKVStore(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	r, err := NewVoteRecorder(context.Background(), db)
	require.NoError(t, err)
	return r, db
}

func TestVoteRecorder_DoubleVote(t *testing.T) {
	ctx := context.Background()
	r, _ := setupRecorder(t)

	evidence, err := r.RecordVote(ctx, vote(1, 3, 5), []byte{0x01})
	require.NoError(t, err)
	assert.Nil(t, evidence)

	evidence, err = r.RecordVote(ctx, vote(2, 3, 5), []byte{0x02})
	require.NoError(t, err)
	require.NotNil(t, evidence)
	assert.Equal(t, casper.DoubleVote, evidence.Kind)
	assert.Equal(t, *vote(1, 3, 5), evidence.Existing.Vote)
	assert.Equal(t, *vote(2, 3, 5), evidence.Candidate.Vote)

	// The first record for the key stays.
	votes := r.Votes(validator)
	require.Len(t, votes, 1)
	assert.Equal(t, *vote(1, 3, 5), votes[0].Vote)
}

func TestVoteRecorder_SameVoteTwice(t *testing.T) {
	ctx := context.Background()
	r, _ := setupRecorder(t)

	_, err := r.RecordVote(ctx, vote(1, 3, 5), nil)
	require.NoError(t, err)
	evidence, err := r.RecordVote(ctx, vote(1, 3, 5), nil)
	require.NoError(t, err)
	assert.Nil(t, evidence)
	assert.Len(t, r.Votes(validator), 1)
}

func TestVoteRecorder_SurroundVote(t *testing.T) {
	tests := []struct {
		name      string
		incoming  *casper.Vote
		slashable bool
	}{
		{name: "nested inside", incoming: vote(2, 4, 9), slashable: true},
		{name: "containing", incoming: vote(2, 2, 11), slashable: true},
		{name: "overlapping", incoming: vote(2, 5, 12), slashable: false},
		{name: "shared source", incoming: vote(2, 3, 12), slashable: false},
		{name: "disjoint", incoming: vote(2, 10, 11), slashable: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			r, _ := setupRecorder(t)
			_, err := r.RecordVote(ctx, vote(1, 3, 10), nil)
			require.NoError(t, err)

			evidence, err := r.RecordVote(ctx, tt.incoming, nil)
			require.NoError(t, err)
			if !tt.slashable {
				assert.Nil(t, evidence)
				return
			}
			require.NotNil(t, evidence)
			assert.Equal(t, casper.SurroundVote, evidence.Kind)
			assert.Equal(t, *vote(1, 3, 10), evidence.Existing.Vote)
		})
	}
}

func TestVoteRecorder_DoubleVoteReportedBeforeSurround(t *testing.T) {
	ctx := context.Background()
	r, _ := setupRecorder(t)

	_, err := r.RecordVote(ctx, vote(1, 2, 11), nil)
	require.NoError(t, err)
	_, err = r.RecordVote(ctx, vote(1, 4, 9), nil)
	require.NoError(t, err)

	evidence, err := r.RecordVote(ctx, vote(3, 5, 9), nil)
	require.NoError(t, err)
	require.NotNil(t, evidence)
	assert.Equal(t, casper.DoubleVote, evidence.Kind)
	assert.Equal(t, primitives.Epoch(9), evidence.Existing.Vote.TargetEpoch)
}

func TestVoteRecorder_RestoresFromStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, err := slasherkv.NewKVStore(ctx, dir)
	require.NoError(t, err)
	r, err := NewVoteRecorder(ctx, db)
	require.NoError(t, err)
	for _, v := range []*casper.Vote{vote(1, 3, 10), vote(1, 1, 2), vote(1, 10, 11)} {
		_, err := r.RecordVote(ctx, v, []byte{0xde, 0xad})
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	db, err = slasherkv.NewKVStore(ctx, dir)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, db.Close())
	}()
	restored, err := NewVoteRecorder(ctx, db)
	require.NoError(t, err)

	votes := restored.Votes(validator)
	require.Len(t, votes, 3)
	for i, target := range []primitives.Epoch{2, 10, 11} {
		assert.Equal(t, target, votes[i].Vote.TargetEpoch)
		assert.Equal(t, []byte{0xde, 0xad}, votes[i].Signature)
	}

	evidence, err := restored.RecordVote(ctx, vote(2, 4, 9), nil)
	require.NoError(t, err)
	require.NotNil(t, evidence)
	assert.Equal(t, casper.SurroundVote, evidence.Kind)
}

func TestVoteRecorder_SubscribeSlashings(t *testing.T) {
	ctx := context.Background()
	r, _ := setupRecorder(t)

	ch := make(chan *slashertypes.SlashingConditionDetected, 1)
	sub := r.SubscribeSlashings(ch)
	defer sub.Unsubscribe()

	_, err := r.RecordVote(ctx, vote(1, 3, 5), nil)
	require.NoError(t, err)
	_, err = r.RecordVote(ctx, vote(2, 3, 5), nil)
	require.NoError(t, err)

	select {
	case evidence := <-ch:
		assert.Equal(t, casper.DoubleVote, evidence.Kind)
		assert.Equal(t, validator, evidence.Candidate.Vote.Validator)
	case <-time.After(time.Second):
		t.Fatal("Did not receive slashing notification")
	}
}

type failingStore struct{}

func (failingStore) SaveVoteRecord(context.Context, *slashertypes.VoteRecord) (bool, error) {
	return false, errors.New("disk full")
}

func (failingStore) VoteRecords(context.Context) ([]*slashertypes.VoteRecord, error) {
	return nil, nil
}

func TestVoteRecorder_SaveFailure(t *testing.T) {
	r, err := NewVoteRecorder(context.Background(), failingStore{})
	require.NoError(t, err)
	_, err = r.RecordVote(context.Background(), vote(1, 3, 5), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, r.Votes(validator))
}
