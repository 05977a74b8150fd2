package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"
)

// ErrFetch marks a source failure that survived every retry.
var ErrFetch = errors.New("orders: fetch failed")

// Source yields raw order records.
type Source interface {
	Fetch(ctx context.Context) ([]Record, error)
}

// FetchRecorder observes fetch outcomes.
type FetchRecorder interface {
	OrderFetch(err error)
}

// Loader reads orders through the cache, retrying the upstream source.
type Loader struct {
	source   Source
	cache    *Cache
	backoff  Backoff
	logger   *slog.Logger
	recorder FetchRecorder
	group    singleflight.Group
}

// NewLoader wires a source with its cache and retry policy.
func NewLoader(source Source, cache *Cache, backoff Backoff, logger *slog.Logger, recorder FetchRecorder) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{source: source, cache: cache, backoff: backoff, logger: logger, recorder: recorder}
}

// Load returns the current snapshot, fetching it when the cache is cold.
func (l *Loader) Load(ctx context.Context) ([]Record, error) {
	key, err := l.cache.BuildKey(ctx, "orders", "records")
	if err != nil {
		return nil, fmt.Errorf("orders: cache key: %w", err)
	}
	v, err, _ := l.group.Do(key, func() (any, error) {
		var recs []Record
		err := l.cache.FetchJSON(ctx, key, &recs, func(ctx context.Context) (any, error) {
			return l.fetch(ctx)
		})
		return recs, err
	})
	if err != nil {
		return nil, err
	}
	return v.([]Record), nil
}

// Refresh invalidates the cached snapshot and loads a fresh one.
func (l *Loader) Refresh(ctx context.Context) ([]Record, error) {
	if err := l.cache.Bump(ctx); err != nil {
		return nil, fmt.Errorf("orders: bump cache: %w", err)
	}
	return l.Load(ctx)
}

func (l *Loader) fetch(ctx context.Context) ([]Record, error) {
	var recs []Record
	err := l.backoff.Do(ctx, func(ctx context.Context, attempt int) error {
		var err error
		recs, err = l.source.Fetch(ctx)
		if err != nil {
			l.logger.Warn("order fetch failed", slog.Int("attempt", attempt+1), slog.Any("error", err))
		}
		return err
	})
	if l.recorder != nil {
		l.recorder.OrderFetch(err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs, nil
}
