package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	mu    sync.Mutex
	calls int
	fails int
	recs  []Record
}

func (s *stubSource) Fetch(context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.fails {
		return nil, errors.New("upstream unavailable")
	}
	return s.recs, nil
}

type countingRecorder struct {
	ok, failed int
}

func (c *countingRecorder) OrderFetch(err error) {
	if err != nil {
		c.failed++
		return
	}
	c.ok++
}

type sleeps struct {
	durations []time.Duration
}

func (s *sleeps) sleep(_ context.Context, d time.Duration) error {
	s.durations = append(s.durations, d)
	return nil
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestLoaderCachesSnapshot(t *testing.T) {
	ctx := context.Background()
	src := &stubSource{recs: []Record{{"Order ID": "1", "Price": 10.0}}}
	loader := NewLoader(src, newTestCache(t), Backoff{Base: time.Second, Attempts: 3}, nil, nil)

	first, err := loader.Load(ctx)
	require.NoError(t, err)
	second, err := loader.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, first, second)
	assert.Equal(t, 10.0, second[0]["Price"])
}

func TestLoaderRefreshBumpsVersion(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t)
	src := &stubSource{recs: []Record{{"Order ID": "1"}}}
	loader := NewLoader(src, cache, Backoff{Attempts: 1}, nil, nil)

	_, err := loader.Load(ctx)
	require.NoError(t, err)
	before, err := cache.Version(ctx)
	require.NoError(t, err)

	src.recs = []Record{{"Order ID": "1"}, {"Order ID": "2"}}
	recs, err := loader.Refresh(ctx)
	require.NoError(t, err)
	after, err := cache.Version(ctx)
	require.NoError(t, err)

	assert.Len(t, recs, 2)
	assert.Equal(t, before+1, after)
	assert.Equal(t, 2, src.calls)
}

func TestLoaderRetriesWithExponentialBackoff(t *testing.T) {
	src := &stubSource{fails: 2, recs: []Record{{"Order ID": "1"}}}
	rec := &countingRecorder{}
	s := &sleeps{}
	loader := NewLoader(src, nil, Backoff{Base: time.Second, Attempts: 3, Sleep: s.sleep}, nil, rec)

	recs, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, 3, src.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, s.durations)
	assert.Equal(t, 1, rec.ok)
}

func TestLoaderGivesUpAfterAttempts(t *testing.T) {
	src := &stubSource{fails: 10}
	rec := &countingRecorder{}
	s := &sleeps{}
	loader := NewLoader(src, newTestCache(t), Backoff{Base: time.Second, Attempts: 3, Sleep: s.sleep}, nil, rec)

	_, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	assert.Contains(t, err.Error(), "upstream unavailable")
	assert.Equal(t, 3, src.calls)
	assert.Len(t, s.durations, 2)
	assert.Equal(t, 1, rec.failed)
}

func TestBackoffStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Backoff{Base: time.Hour, Attempts: 3}.Do(ctx, func(context.Context, int) error {
		calls++
		return errors.New("nope")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestCacheWithoutClientCallsLoader(t *testing.T) {
	var cache *Cache
	key, err := cache.BuildKey(context.Background(), "orders", "records")
	require.NoError(t, err)
	assert.Equal(t, "orders:records", key)

	var dest []string
	err = cache.FetchJSON(context.Background(), key, &dest, func(context.Context) (any, error) {
		return []string{"a"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, dest)
	assert.NoError(t, cache.Bump(context.Background()))
}
