package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/opsboard/opsboard/internal/costs"
	"github.com/opsboard/opsboard/internal/currency"
	"github.com/opsboard/opsboard/internal/debounce"
	"github.com/opsboard/opsboard/internal/filters"
	"github.com/opsboard/opsboard/internal/orders"
	"github.com/opsboard/opsboard/internal/status"
)

// Deps wire the stores every workspace is built from.
type Deps struct {
	Redis          *redis.Client
	StatusRepo     status.Repository
	CostRepo       costs.Repository
	Loader         RecordLoader
	CostRecorder   costs.WriteRecorder
	Logger         *slog.Logger
	Location       *time.Location
	Now            func() time.Time
	Debounce       time.Duration
	WriteTimeout   time.Duration
	TTL            time.Duration
	EvictFlushTime time.Duration
	BuildTimeout   time.Duration
}

// Registry keeps live workspaces in memory, expiring idle ones.
//
// live tracks every workspace not yet closed, including expired entries the
// cache janitor has not evicted. closing holds workspaces still flushing.
type Registry struct {
	deps  Deps
	items *gocache.Cache
	group singleflight.Group

	mu      sync.Mutex
	live    map[string]*Workspace
	closing map[string]chan struct{}
}

// NewRegistry constructs a registry. Evicted workspaces flush pending writes.
func NewRegistry(deps Deps) *Registry {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.TTL <= 0 {
		deps.TTL = 2 * time.Hour
	}
	if deps.EvictFlushTime <= 0 {
		deps.EvictFlushTime = 10 * time.Second
	}
	if deps.WriteTimeout <= 0 {
		deps.WriteTimeout = 10 * time.Second
	}
	if deps.BuildTimeout <= 0 {
		deps.BuildTimeout = 30 * time.Second
	}
	r := &Registry{
		deps:    deps,
		items:   gocache.New(deps.TTL, deps.TTL/4),
		live:    map[string]*Workspace{},
		closing: map[string]chan struct{}{},
	}
	r.items.OnEvicted(r.evicted)
	return r
}

func (r *Registry) evicted(key string, v any) {
	ws, ok := v.(*Workspace)
	if !ok {
		return
	}
	r.mu.Lock()
	if cur, ok := r.items.Get(key); ok && cur == ws {
		// Revived by Get after expiring.
		r.mu.Unlock()
		return
	}
	if r.live[key] == ws {
		delete(r.live, key)
	}
	done := make(chan struct{})
	r.closing[key] = done
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), r.deps.EvictFlushTime)
	defer cancel()
	if err := ws.Close(ctx); err != nil {
		r.deps.Logger.Warn("flush evicted workspace", slog.String("user", key), slog.Any("error", err))
	}

	r.mu.Lock()
	if r.closing[key] == done {
		delete(r.closing, key)
	}
	r.mu.Unlock()
	close(done)
}

// Get returns the user's workspace, building it on first use.
func (r *Registry) Get(ctx context.Context, userID int64) (*Workspace, error) {
	key := strconv.FormatInt(userID, 10)
	if v, ok := r.items.Get(key); ok {
		ws := v.(*Workspace)
		r.items.SetDefault(key, ws)
		return ws, nil
	}
	ch := r.group.DoChan(key, func() (any, error) {
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.deps.BuildTimeout)
		defer cancel()
		return r.acquire(bctx, key, userID)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Workspace), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// acquire revives a workspace that expired without being evicted, waits for
// one still flushing, and otherwise builds a fresh one.
func (r *Registry) acquire(ctx context.Context, key string, userID int64) (*Workspace, error) {
	for {
		r.mu.Lock()
		if ws, ok := r.live[key]; ok {
			r.items.SetDefault(key, ws)
			r.mu.Unlock()
			return ws, nil
		}
		done, flushing := r.closing[key]
		r.mu.Unlock()
		if !flushing {
			break
		}
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	ws, err := r.build(ctx, userID)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.live[key] = ws
	r.items.SetDefault(key, ws)
	r.mu.Unlock()
	return ws, nil
}

// Evict drops a workspace after flushing it.
func (r *Registry) Evict(userID int64) {
	r.items.Delete(strconv.FormatInt(userID, 10))
}

// Len reports the number of live workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Close flushes every workspace. Call on shutdown.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	live := r.live
	r.live = map[string]*Workspace{}
	r.items.Flush()
	r.mu.Unlock()

	var errs []error
	for key, ws := range live {
		if err := ws.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("workspace %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) build(ctx context.Context, userID int64) (*Workspace, error) {
	notices := newNotices(r.deps.Now)
	logger := r.deps.Logger.With(slog.Int64("user_id", userID))
	scheduler := debounce.New(debounce.Options{
		Delay:   r.deps.Debounce,
		Timeout: r.deps.WriteTimeout,
		OnError: func(key string, err error) {
			notices.Push(LevelError, fmt.Sprintf("Could not save %s: %v", key, err))
		},
	})
	ws := &Workspace{
		UserID:   userID,
		Statuses: status.NewStore(r.deps.StatusRepo, userID),
		Filters:  filters.NewStore(r.deps.Redis, userID),
		Rates:    currency.NewStore(r.deps.Redis, userID),
		Costs: costs.NewLedger(costs.Options{
			Repository: r.deps.CostRepo,
			Scheduler:  scheduler,
			Recorder:   r.deps.CostRecorder,
			Logger:     logger,
			Now:        r.deps.Now,
			Location:   r.deps.Location,
		}),
		Notices:   notices,
		scheduler: scheduler,
		loader:    r.deps.Loader,
		logger:    logger,
		now:       r.deps.Now,
	}

	g, gctx := errgroup.WithContext(ctx)
	ws.load(gctx, g)
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("workspace: load: %w", err)
	}
	ws.mu.Lock()
	if ws.fetchErr != nil {
		logger.Warn("orders unavailable", slog.Any("error", ws.fetchErr))
		notices.Push(LevelError, fmt.Sprintf("Could not load orders: %v", ws.fetchErr))
	} else {
		ws.orders = orders.NormalizeAll(ws.records, ws.Rates)
	}
	ws.mu.Unlock()
	return ws, nil
}
