package indexer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunNow(t *testing.T) {
	f := newFixture(t)
	idx := New(f.store, localService(t), nil, nil, Config{})
	s := NewScheduler(idx, "", nil)
	assert.Equal(t, DefaultSchedule, s.spec)

	require.NoError(t, s.Start(context.Background(), true))
	require.Eventually(t, func() bool {
		status, err := f.store.GetStatus(context.Background())
		return err == nil && status.EmbeddedJobs == 2 && status.EmbeddedSeekers == 1
	}, 5*time.Second, 10*time.Millisecond)
	s.Stop()
}

func TestScheduler_InvalidSpec(t *testing.T) {
	idx := New(newFixture(t).store, localService(t), nil, nil, Config{})
	s := NewScheduler(idx, "every now and then", nil)
	assert.Error(t, s.Start(context.Background(), false))
}

func TestScheduler_SkipsWhileRunning(t *testing.T) {
	idx := New(newFixture(t).store, localService(t), nil, nil, Config{})
	require.True(t, idx.lock.TryAcquire())
	defer idx.lock.Release()

	s := NewScheduler(idx, "@every 1h", nil)
	// Logged and skipped, no panic
	s.run(context.Background())
}
