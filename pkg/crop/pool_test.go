package crop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsSubmittedWork(t *testing.T) {
	pool := NewPool()
	pool.Start(2)
	defer pool.Stop()

	ch, ok := pool.Submit(context.Background(), func(ctx context.Context) ([]Score, error) {
		return []Score{{Strategy: StrategyEntropy, Score: 0.4}}, nil
	})
	require.True(t, ok)

	select {
	case outcome := <-ch:
		require.NoError(t, outcome.err)
		require.Len(t, outcome.scores, 1)
		assert.Equal(t, StrategyEntropy, outcome.scores[0].Strategy)
	case <-time.After(time.Second):
		t.Fatal("job did not complete")
	}
}

func TestPoolSkipsCancelledJobs(t *testing.T) {
	pool := NewPool()
	defer pool.Stop()

	// Queue the job before any worker exists, then cancel: the worker must
	// observe the dead context and never run the closure.
	ctx, cancel := context.WithCancel(context.Background())
	ch, ok := pool.Submit(ctx, func(ctx context.Context) ([]Score, error) {
		t.Error("cancelled job must not run")
		return nil, nil
	})
	require.True(t, ok)
	cancel()

	pool.Start(1)

	select {
	case outcome := <-ch:
		assert.ErrorIs(t, outcome.err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("no outcome for cancelled job")
	}
}

func TestPoolSubmitAfterStop(t *testing.T) {
	pool := NewPool()
	pool.Start(1)
	pool.Stop()

	_, ok := pool.Submit(context.Background(), func(ctx context.Context) ([]Score, error) {
		return nil, nil
	})
	assert.False(t, ok)
}
