package costs

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/opsboard/opsboard/internal/debounce"
	"github.com/opsboard/opsboard/internal/filters"
)

const dateLayout = "2006-01-02"

// Repository persists cost entries. An empty value deletes the stored entry.
type Repository interface {
	Load(ctx context.Context) (Snapshot, error)
	SaveProductCost(ctx context.Context, product string, value Entry) error
	SaveAdCost(ctx context.Context, date, product string, platform Platform, value Entry) error
	DeleteAllProductCosts(ctx context.Context) error
	DeleteAllAdCosts(ctx context.Context) error
}

// Scheduler defers persistence per key.
type Scheduler interface {
	Schedule(key string, job debounce.Job) error
	CancelPrefix(prefix string) map[string]debounce.Job
}

// WriteRecorder observes persistence outcomes by kind ("product", "ad").
type WriteRecorder interface {
	CostWrite(kind string, err error)
}

// Options wire a Ledger.
type Options struct {
	Repository Repository
	Scheduler  Scheduler
	Recorder   WriteRecorder
	Logger     *slog.Logger
	// Now is the clock used to resolve "today"; defaults to time.Now.
	Now      func() time.Time
	Location *time.Location
}

// Ledger holds product and ad costs in memory and persists each edit through
// the debounce scheduler. Local state is authoritative for the session.
type Ledger struct {
	opts Options

	mu       sync.RWMutex
	products map[string]Entry
	ads      map[string]map[string]map[Platform]Entry
}

// NewLedger constructs an empty ledger.
func NewLedger(opts Options) *Ledger {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Ledger{
		opts:     opts,
		products: map[string]Entry{},
		ads:      map[string]map[string]map[Platform]Entry{},
	}
}

// Load replaces local state with the persisted ledger.
func (l *Ledger) Load(ctx context.Context) error {
	if l.opts.Repository == nil {
		return nil
	}
	snap, err := l.opts.Repository.Load(ctx)
	if err != nil {
		return fmt.Errorf("costs: load: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.products = snap.ProductCosts
	if l.products == nil {
		l.products = map[string]Entry{}
	}
	l.ads = snap.AdCostsByDate
	if l.ads == nil {
		l.ads = map[string]map[string]map[Platform]Entry{}
	}
	return nil
}

// ProductCost returns the sourcing cost of a product, or an unset entry.
func (l *Ledger) ProductCost(product string) Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.products[product]
}

// SetProductCost applies the value locally and schedules its persistence.
func (l *Ledger) SetProductCost(product, raw string) (Entry, error) {
	product = strings.TrimSpace(product)
	if product == "" {
		return "", ErrEmptyProduct
	}
	value, err := ParseEntry(raw)
	if err != nil {
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if value.IsSet() {
		l.products[product] = value
	} else {
		delete(l.products, product)
	}
	l.schedule(productKey(product), "product", func(ctx context.Context) error {
		return l.opts.Repository.SaveProductCost(ctx, product, value)
	})
	return value, nil
}

// AdCost reads the ad spend of product on platform under filter. A date range
// sums every stored day within it, counting missing days as 0. Otherwise the
// single effective date is read and may be unset.
func (l *Ledger) AdCost(product string, platform Platform, filter filters.Filter) Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if filter.IsRange() {
		return entryFromFloat(l.sumRange(product, platform, filter.Value(filters.StartDate), filter.Value(filters.EndDate)))
	}
	return l.ads[l.effectiveDate(filter)][product][platform]
}

// TotalAdCost sums AdCost over every platform.
func (l *Ledger) TotalAdCost(product string, filter filters.Filter) float64 {
	var total float64
	for _, p := range Platforms {
		total += l.AdCost(product, p, filter).Float()
	}
	return total
}

// SetAdCost writes a point value on the range end date, or on the single
// effective date, and returns the date written.
func (l *Ledger) SetAdCost(product string, platform Platform, raw string, filter filters.Filter) (string, Entry, error) {
	product = strings.TrimSpace(product)
	if product == "" {
		return "", "", ErrEmptyProduct
	}
	if _, err := ParsePlatform(string(platform)); err != nil {
		return "", "", err
	}
	value, err := ParseEntry(raw)
	if err != nil {
		return "", "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	date := l.effectiveDate(filter)
	if filter.IsRange() {
		date = filter.Value(filters.EndDate)
	}
	l.putAd(date, product, platform, value)
	l.schedule(adKey(date, product, platform), "ad", func(ctx context.Context) error {
		return l.opts.Repository.SaveAdCost(ctx, date, product, platform, value)
	})
	return date, value, nil
}

// DeleteAllProductCosts clears every product cost remotely, then locally.
func (l *Ledger) DeleteAllProductCosts(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.deleteAll(ctx, productPrefix, "product", l.opts.Repository.DeleteAllProductCosts); err != nil {
		return fmt.Errorf("costs: delete product costs: %w", err)
	}
	l.products = map[string]Entry{}
	return nil
}

// DeleteAllAdCosts clears every ad cost remotely, then locally.
func (l *Ledger) DeleteAllAdCosts(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.deleteAll(ctx, adPrefix, "ad", l.opts.Repository.DeleteAllAdCosts); err != nil {
		return fmt.Errorf("costs: delete ad costs: %w", err)
	}
	l.ads = map[string]map[string]map[Platform]Entry{}
	return nil
}

// Snapshot copies both maps.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ads := make(map[string]map[string]map[Platform]Entry, len(l.ads))
	for date, byProduct := range l.ads {
		inner := make(map[string]map[Platform]Entry, len(byProduct))
		for product, byPlatform := range byProduct {
			inner[product] = maps.Clone(byPlatform)
		}
		ads[date] = inner
	}
	return Snapshot{ProductCosts: maps.Clone(l.products), AdCostsByDate: ads}
}

// deleteAll must be called with l.mu held.
func (l *Ledger) deleteAll(ctx context.Context, prefix, kind string, remote func(context.Context) error) error {
	var cancelled map[string]debounce.Job
	if l.opts.Scheduler != nil {
		cancelled = l.opts.Scheduler.CancelPrefix(prefix)
	}
	if l.opts.Repository == nil {
		return nil
	}
	err := remote(ctx)
	l.record(kind, err)
	if err == nil {
		return nil
	}
	for key, job := range cancelled {
		if serr := l.opts.Scheduler.Schedule(key, job); serr != nil {
			l.opts.Logger.Error("re-arm cost write", slog.String("key", key), slog.Any("error", serr))
		}
	}
	return err
}

// schedule must be called with l.mu held.
func (l *Ledger) schedule(key, kind string, write func(context.Context) error) {
	if l.opts.Repository == nil || l.opts.Scheduler == nil {
		return
	}
	job := func(ctx context.Context) error {
		err := write(ctx)
		l.record(kind, err)
		if err != nil {
			l.opts.Logger.Warn("cost write failed", slog.String("key", key), slog.Any("error", err))
		}
		return err
	}
	if err := l.opts.Scheduler.Schedule(key, job); err != nil {
		l.opts.Logger.Error("schedule cost write", slog.String("key", key), slog.Any("error", err))
	}
}

func (l *Ledger) record(kind string, err error) {
	if l.opts.Recorder != nil {
		l.opts.Recorder.CostWrite(kind, err)
	}
}

func (l *Ledger) effectiveDate(filter filters.Filter) string {
	if start := filter.Value(filters.StartDate); start != "" {
		return start
	}
	return l.opts.Now().In(l.opts.Location).Format(dateLayout)
}

func (l *Ledger) sumRange(product string, platform Platform, start, end string) float64 {
	dates := make([]string, 0, len(l.ads))
	for date := range l.ads {
		if date >= start && date <= end {
			dates = append(dates, date)
		}
	}
	sort.Strings(dates)
	var total float64
	for _, date := range dates {
		total += l.ads[date][product][platform].Float()
	}
	return total
}

func (l *Ledger) putAd(date, product string, platform Platform, value Entry) {
	byProduct := l.ads[date]
	if !value.IsSet() {
		if byPlatform := byProduct[product]; byPlatform != nil {
			delete(byPlatform, platform)
			if len(byPlatform) == 0 {
				delete(byProduct, product)
			}
			if len(byProduct) == 0 {
				delete(l.ads, date)
			}
		}
		return
	}
	if byProduct == nil {
		byProduct = map[string]map[Platform]Entry{}
		l.ads[date] = byProduct
	}
	if byProduct[product] == nil {
		byProduct[product] = map[Platform]Entry{}
	}
	byProduct[product][platform] = value
}
