package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsJobs(t *testing.T) {
	done := make(chan Job, 1)
	q := NewQueue("test", func(_ context.Context, job Job) error {
		done <- job
		return nil
	}, QueueConfig{})
	q.Start(context.Background())
	defer q.Stop()

	id, err := q.Enqueue(Job{Type: "noop", Payload: 42})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	select {
	case job := <-done:
		assert.Equal(t, id, job.ID)
		assert.Equal(t, 42, job.Payload)
		assert.False(t, job.Enqueued.IsZero())
	case <-time.After(time.Second):
		t.Fatal("job not processed")
	}
}

func TestQueueWithoutRetriesReportsFailureOnce(t *testing.T) {
	var calls int32
	failed := make(chan error, 1)
	q := NewQueue("test", func(context.Context, Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("rejected")
	}, QueueConfig{MaxRetries: 0, OnFailure: func(_ Job, err error) { failed <- err }})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue(Job{ID: "fixed"})
	require.NoError(t, err)

	select {
	case err := <-failed:
		assert.EqualError(t, err, "rejected")
	case <-time.After(time.Second):
		t.Fatal("failure not reported")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestQueueRetriesBeforeFailing(t *testing.T) {
	var calls int32
	failed := make(chan Job, 1)
	q := NewQueue("test", func(context.Context, Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("flaky")
	}, QueueConfig{MaxRetries: 2, RetryDelay: time.Millisecond, OnFailure: func(job Job, _ error) { failed <- job }})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue(Job{})
	require.NoError(t, err)

	select {
	case job := <-failed:
		assert.Equal(t, 3, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("failure not reported")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	_, err := q.Enqueue(Job{})
	assert.Error(t, err)
}

func TestQueueStopReportsBufferedJobs(t *testing.T) {
	running := make(chan struct{})
	var once sync.Once
	var mu sync.Mutex
	failures := map[string]error{}

	q := NewQueue("test", func(ctx context.Context, _ Job) error {
		once.Do(func() { close(running) })
		<-ctx.Done()
		return ctx.Err()
	}, QueueConfig{Workers: 1, BufferSize: 4, MaxRetries: 0, OnFailure: func(job Job, err error) {
		mu.Lock()
		defer mu.Unlock()
		failures[job.ID] = err
	}})
	q.Start(context.Background())

	for _, id := range []string{"a", "b", "c"} {
		_, err := q.Enqueue(Job{ID: id})
		require.NoError(t, err)
	}
	select {
	case <-running:
	case <-time.After(time.Second):
		t.Fatal("worker never picked a job")
	}

	q.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, failures, 3)
	for id, err := range failures {
		assert.True(t, errors.Is(err, ErrStopped) || errors.Is(err, context.Canceled), "job %s: %v", id, err)
	}

	_, err := q.Enqueue(Job{ID: "late"})
	assert.ErrorIs(t, err, ErrStopped)
	q.Stop()
}
