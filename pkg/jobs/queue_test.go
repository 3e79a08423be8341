package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan Job, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		done <- job
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "notify", Payload: "x"}))

	select {
	case job := <-done:
		assert.Equal(t, "notify", job.Type)
		assert.NotEmpty(t, job.ID)
		assert.False(t, job.Enqueued.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("job not processed")
	}
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts int32
	done := make(chan struct{})
	q := NewQueue("retry", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 10 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "notify"}))

	select {
	case <-done:
		assert.EqualValues(t, 3, atomic.LoadInt32(&attempts))
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}
}

func TestQueueRecoversPanics(t *testing.T) {
	var attempts int32
	q := NewQueue("panic", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&attempts, 1)
		panic("boom")
	}, QueueConfig{Workers: 1, MaxRetries: 0})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{Type: "notify"}))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&attempts) == 1 }, time.Second, 5*time.Millisecond)
	q.Stop()
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{}))
}

func TestQueueReportsFullBuffer(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("full", func(ctx context.Context, job Job) error {
		<-block
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer func() {
		close(block)
		q.Stop()
	}()

	var full bool
	for i := 0; i < 5; i++ {
		if err := q.Enqueue(Job{}); errors.Is(err, ErrQueueFull) {
			full = true
			break
		}
	}
	assert.True(t, full)
}

func TestQueueStopDrainsBufferedJobs(t *testing.T) {
	release := make(chan struct{})
	var processed int32
	q := NewQueue("drain", func(ctx context.Context, job Job) error {
		<-release
		if ctx.Err() != nil {
			return ctx.Err()
		}
		atomic.AddInt32(&processed, 1)
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 8})
	q.Start(context.Background())

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(Job{Type: "notify"}))
	}

	stopped := make(chan struct{})
	go func() {
		q.Stop()
		close(stopped)
	}()
	assert.Eventually(t, func() bool {
		return errors.Is(q.Enqueue(Job{Type: "late"}), ErrQueueStopped)
	}, time.Second, 5*time.Millisecond)

	close(release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not return")
	}
	assert.EqualValues(t, 5, atomic.LoadInt32(&processed))
}

func TestQueueStopIsIdempotent(t *testing.T) {
	q := NewQueue("twice", func(context.Context, Job) error { return nil }, QueueConfig{})
	q.Start(context.Background())
	q.Stop()
	q.Stop()
	assert.ErrorIs(t, q.Enqueue(Job{}), ErrQueueStopped)
}
