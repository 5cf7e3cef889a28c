package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBaseJobRejectsBadSpec(t *testing.T) {
	_, err := NewBaseJob("bad", "every now and then", nil, func(ctx context.Context) error { return nil })
	assert.Error(t, err)
}

func TestRunCallsOnWork(t *testing.T) {
	rounds := 0
	job, err := NewBaseJob("count", "@every 1h", nil, func(ctx context.Context) error {
		rounds++
		return errors.New("round failed")
	})
	require.NoError(t, err)

	// a failed round is logged, the next one still runs
	job.Run()
	job.Run()
	assert.Equal(t, 2, rounds)
}

func TestServeStopsWithContext(t *testing.T) {
	job, err := NewBaseJob("idle", "@every 1h", nil, func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, job.Serve(ctx))
}
