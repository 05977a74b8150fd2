// Package workspace holds the per-user dashboard state: status configuration,
// filters, conversion rates, the cost ledger and the loaded order snapshot.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/opsboard/opsboard/internal/costs"
	"github.com/opsboard/opsboard/internal/currency"
	"github.com/opsboard/opsboard/internal/debounce"
	"github.com/opsboard/opsboard/internal/filters"
	"github.com/opsboard/opsboard/internal/orders"
	"github.com/opsboard/opsboard/internal/status"
)

// RecordLoader yields raw order records.
type RecordLoader interface {
	Load(ctx context.Context) ([]orders.Record, error)
	Refresh(ctx context.Context) ([]orders.Record, error)
}

// FetchState describes the last order load.
type FetchState struct {
	LoadedAt time.Time `json:"loadedAt"`
	Records  int       `json:"records"`
	Error    string    `json:"error,omitempty"`
}

// Workspace is one user's dashboard session.
type Workspace struct {
	UserID   int64
	Statuses *status.Store
	Filters  *filters.Store
	Rates    *currency.Store
	Costs    *costs.Ledger
	Notices  *Notices

	scheduler *debounce.Scheduler
	loader    RecordLoader
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.RWMutex
	records  []orders.Record
	orders   []orders.Order
	fetchErr error
	loadedAt time.Time
}

// Orders returns the converted order snapshot. It is empty while the last
// fetch is in error.
func (w *Workspace) Orders() []orders.Order {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.orders
}

// FetchState reports the outcome of the last load.
func (w *Workspace) FetchState() FetchState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	st := FetchState{LoadedAt: w.loadedAt, Records: len(w.records)}
	if w.fetchErr != nil {
		st.Error = w.fetchErr.Error()
	}
	return st
}

// Refresh refetches orders from the source, bypassing the shared cache.
func (w *Workspace) Refresh(ctx context.Context) error {
	if w.loader == nil {
		return nil
	}
	recs, err := w.loader.Refresh(ctx)
	w.setRecords(recs, err)
	return err
}

// Close flushes pending cost writes and stops accepting new ones.
func (w *Workspace) Close(ctx context.Context) error {
	return w.scheduler.Close(ctx)
}

// Flush persists pending cost writes now.
func (w *Workspace) Flush(ctx context.Context) error {
	return w.scheduler.Flush(ctx)
}

func (w *Workspace) load(ctx context.Context, g *errgroup.Group) {
	g.Go(func() error { return w.Statuses.Load(ctx) })
	g.Go(func() error { return w.Filters.Load(ctx) })
	g.Go(func() error { return w.Rates.Load(ctx) })
	g.Go(func() error { return w.Costs.Load(ctx) })
	g.Go(func() error {
		if w.loader == nil {
			return nil
		}
		recs, err := w.loader.Load(ctx)
		if err != nil && !errors.Is(err, orders.ErrFetch) {
			return err
		}
		w.mu.Lock()
		w.records, w.fetchErr, w.loadedAt = recs, err, w.now()
		w.mu.Unlock()
		return nil
	})
}

func (w *Workspace) setRecords(recs []orders.Record, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.loadedAt = w.now()
	if err != nil {
		w.records, w.orders, w.fetchErr = nil, nil, err
		w.logger.Warn("orders unavailable", slog.Int64("user_id", w.UserID), slog.Any("error", err))
		w.Notices.Push(LevelError, fmt.Sprintf("Could not load orders: %v", err))
		return
	}
	w.records, w.fetchErr = recs, nil
	w.orders = orders.NormalizeAll(recs, w.Rates)
}
