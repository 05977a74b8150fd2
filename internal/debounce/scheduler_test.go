package debounce

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

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) job(value string) Job {
	return func(context.Context) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, value)
		return nil
	}
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestScheduleCollapsesRapidCalls(t *testing.T) {
	s := New(Options{Delay: 30 * time.Millisecond})
	rec := &recorder{}

	require.NoError(t, s.Schedule("product_Widget", rec.job("v1")))
	require.NoError(t, s.Schedule("product_Widget", rec.job("v2")))
	require.NoError(t, s.Schedule("product_Widget", rec.job("v3")))
	assert.Equal(t, 1, s.Pending())

	assert.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, []string{"v3"}, rec.snapshot())
	assert.Zero(t, s.Pending())
}

func TestDifferentKeysRunConcurrently(t *testing.T) {
	s := New(Options{Delay: 5 * time.Millisecond})
	release := make(chan struct{})
	var started atomic.Int32

	blocking := func(context.Context) error {
		started.Add(1)
		<-release
		return nil
	}
	require.NoError(t, s.Schedule("a", blocking))
	require.NoError(t, s.Schedule("b", blocking))

	assert.Eventually(t, func() bool { return started.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(release)
	require.NoError(t, s.Flush(context.Background()))
}

func TestFailureDoesNotAffectOtherKeys(t *testing.T) {
	var mu sync.Mutex
	failed := map[string]error{}
	s := New(Options{Delay: 5 * time.Millisecond, OnError: func(key string, err error) {
		mu.Lock()
		failed[key] = err
		mu.Unlock()
	}})
	rec := &recorder{}

	require.NoError(t, s.Schedule("bad", func(context.Context) error { return errors.New("rejected") }))
	require.NoError(t, s.Schedule("good", rec.job("ok")))
	require.NoError(t, s.Flush(context.Background()))

	assert.Equal(t, []string{"ok"}, rec.snapshot())
	mu.Lock()
	defer mu.Unlock()
	require.Contains(t, failed, "bad")
	assert.EqualError(t, failed["bad"], "rejected")
	assert.NotContains(t, failed, "good")
}

func TestFlushRunsPendingImmediately(t *testing.T) {
	s := New(Options{Delay: time.Hour})
	rec := &recorder{}
	require.NoError(t, s.Schedule("a", rec.job("a")))
	require.NoError(t, s.Schedule("b", rec.job("b")))

	require.NoError(t, s.Flush(context.Background()))
	assert.ElementsMatch(t, []string{"a", "b"}, rec.snapshot())
	assert.Zero(t, s.Pending())
}

func TestCancelPrefixReturnsJobsForRearming(t *testing.T) {
	s := New(Options{Delay: time.Hour})
	rec := &recorder{}
	require.NoError(t, s.Schedule("ad_2024-01-01_Widget_fb", rec.job("ad")))
	require.NoError(t, s.Schedule("product_Widget", rec.job("product")))

	cancelled := s.CancelPrefix("ad_")
	require.Len(t, cancelled, 1)
	assert.Contains(t, cancelled, "ad_2024-01-01_Widget_fb")
	assert.Equal(t, 1, s.Pending())

	for key, job := range cancelled {
		require.NoError(t, s.Schedule(key, job))
	}
	require.NoError(t, s.Flush(context.Background()))
	assert.ElementsMatch(t, []string{"ad", "product"}, rec.snapshot())
}

func TestCancelPrefixWaitsForInFlightRuns(t *testing.T) {
	s := New(Options{Delay: time.Millisecond})
	started := make(chan struct{})
	var finished atomic.Bool
	require.NoError(t, s.Schedule("product_A", func(context.Context) error {
		close(started)
		time.Sleep(40 * time.Millisecond)
		finished.Store(true)
		return nil
	}))
	<-started

	s.CancelPrefix("product_")
	assert.True(t, finished.Load())
}

func TestCloseRejectsNewJobs(t *testing.T) {
	s := New(Options{Delay: time.Hour})
	rec := &recorder{}
	require.NoError(t, s.Schedule("a", rec.job("a")))

	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, []string{"a"}, rec.snapshot())
	assert.ErrorIs(t, s.Schedule("b", rec.job("b")), ErrClosed)
}

func TestJobTimeout(t *testing.T) {
	s := New(Options{Delay: time.Millisecond, Timeout: 10 * time.Millisecond})
	errs := make(chan error, 1)
	require.NoError(t, s.Schedule("slow", func(ctx context.Context) error {
		<-ctx.Done()
		errs <- ctx.Err()
		return ctx.Err()
	}))
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("job never timed out")
	}
}

func TestFlushHonoursContext(t *testing.T) {
	s := New(Options{Delay: time.Hour})
	release := make(chan struct{})
	defer close(release)
	require.NoError(t, s.Schedule("stuck", func(context.Context) error {
		<-release
		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Flush(ctx), context.DeadlineExceeded)
}
