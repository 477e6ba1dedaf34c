package indexer

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueue(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(4)

	first := NewTask(KindJob, 1)
	second := NewTask(KindSeeker, 2)
	require.NoError(t, q.Push(ctx, first))
	require.NoError(t, q.Push(ctx, second))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, got)
	got, err = q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	t.Run("pop honours context", func(t *testing.T) {
		cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err := q.Pop(cctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("closed queue", func(t *testing.T) {
		require.NoError(t, q.Close())
		require.NoError(t, q.Close())
		assert.ErrorIs(t, q.Push(ctx, NewTask(KindJob, 3)), ErrQueueClosed)
		_, err := q.Pop(ctx)
		assert.ErrorIs(t, err, ErrQueueClosed)
	})
}

func TestMemoryQueue_CloseUnblocksPush(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(1)
	require.NoError(t, q.Push(ctx, NewTask(KindJob, 1)))

	pushed := make(chan error, 1)
	go func() { pushed <- q.Push(ctx, NewTask(KindJob, 2)) }()

	closed := make(chan error, 1)
	go func() {
		time.Sleep(20 * time.Millisecond)
		closed <- q.Close()
	}()

	select {
	case err := <-closed:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked behind a full queue")
	}
	select {
	case err := <-pushed:
		assert.ErrorIs(t, err, ErrQueueClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Push did not return after close")
	}
}

func TestNewTask(t *testing.T) {
	task := NewTask(KindJob, 42)
	_, err := uuid.Parse(task.ID)
	assert.NoError(t, err)
	assert.Equal(t, KindJob, task.Kind)
	assert.Equal(t, int64(42), task.EntityID)
	assert.False(t, task.EnqueuedAt.IsZero())
	assert.NotEqual(t, task.ID, NewTask(KindJob, 42).ID)
}

func TestRedisQueue(t *testing.T) {
	url := os.Getenv("IMPACTMATCH_TEST_REDIS_URL")
	if url == "" {
		t.Skip("IMPACTMATCH_TEST_REDIS_URL not set")
	}
	ctx := context.Background()

	client, err := NewRedisClient(ctx, url)
	require.NoError(t, err)
	key := "impactmatch:test:" + uuid.NewString()
	q := NewRedisQueue(client, key)
	defer func() {
		_ = client.Del(ctx, key).Err()
		_ = q.Close()
	}()

	task := NewTask(KindJob, 7)
	require.NoError(t, q.Push(ctx, task))
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, task.EntityID, got.EntityID)
	assert.True(t, task.EnqueuedAt.Equal(got.EnqueuedAt))
}

func TestNewRedisClient_BadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not-a-url")
	assert.Error(t, err)
}
