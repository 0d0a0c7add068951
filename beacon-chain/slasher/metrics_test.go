package slasher

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func TestVoteRecorder_Metrics(t *testing.T) {
	ctx := context.Background()
	r, _ := setupRecorder(t)
	recorded := counterValue(t, recordedVotesTotal)
	doubles := counterValue(t, doubleVotesTotal)
	surrounds := counterValue(t, surroundVotesTotal)

	_, err := r.RecordVote(ctx, vote(1, 3, 5), nil)
	require.NoError(t, err)
	_, err = r.RecordVote(ctx, vote(1, 3, 5), nil)
	require.NoError(t, err)
	_, err = r.RecordVote(ctx, vote(2, 3, 5), nil)
	require.NoError(t, err)
	_, err = r.RecordVote(ctx, vote(3, 2, 6), nil)
	require.NoError(t, err)

	assert.Equal(t, recorded+2, counterValue(t, recordedVotesTotal))
	assert.Equal(t, doubles+1, counterValue(t, doubleVotesTotal))
	assert.Equal(t, surrounds+1, counterValue(t, surroundVotesTotal))
}
