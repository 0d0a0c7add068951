package async_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/esperanzalabs/esperanza/async"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunEvery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	i := int32(0)
	async.RunEvery(ctx, "counter", 20*time.Millisecond, func() {
		atomic.AddInt32(&i, 1)
	})
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&i) > 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	// Let the cancel take place.
	time.Sleep(50 * time.Millisecond)
	last := atomic.LoadInt32(&i)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, last, atomic.LoadInt32(&i), "counter incremented after stop")
}
