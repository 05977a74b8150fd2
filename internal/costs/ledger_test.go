package costs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsboard/opsboard/internal/debounce"
	"github.com/opsboard/opsboard/internal/filters"
)

type productWrite struct {
	product string
	value   Entry
}

type adWrite struct {
	date, product string
	platform      Platform
	value         Entry
}

type fakeRepo struct {
	mu            sync.Mutex
	snapshot      Snapshot
	productWrites []productWrite
	adWrites      []adWrite
	saveErr       error
	deleteErr     error
	deletes       int
}

func (f *fakeRepo) Load(context.Context) (Snapshot, error) { return f.snapshot, nil }

func (f *fakeRepo) SaveProductCost(_ context.Context, product string, value Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.productWrites = append(f.productWrites, productWrite{product, value})
	return nil
}

func (f *fakeRepo) SaveAdCost(_ context.Context, date, product string, platform Platform, value Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.adWrites = append(f.adWrites, adWrite{date, product, platform, value})
	return nil
}

func (f *fakeRepo) DeleteAllProductCosts(context.Context) error { return f.delete() }

func (f *fakeRepo) DeleteAllAdCosts(context.Context) error { return f.delete() }

func (f *fakeRepo) delete() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	return f.deleteErr
}

func (f *fakeRepo) products() []productWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]productWrite(nil), f.productWrites...)
}

func (f *fakeRepo) ads() []adWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]adWrite(nil), f.adWrites...)
}

type outcomes struct {
	mu     sync.Mutex
	failed int
}

func (o *outcomes) CostWrite(_ string, err error) {
	if err != nil {
		o.mu.Lock()
		o.failed++
		o.mu.Unlock()
	}
}

var fixedNow = func() time.Time { return time.Date(2024, 2, 10, 15, 0, 0, 0, time.UTC) }

func newTestLedger(repo Repository, delay time.Duration) (*Ledger, *debounce.Scheduler) {
	sched := debounce.New(debounce.Options{Delay: delay})
	return NewLedger(Options{Repository: repo, Scheduler: sched, Now: fixedNow}), sched
}

func TestProductCostReadAfterWrite(t *testing.T) {
	repo := &fakeRepo{}
	ledger, _ := newTestLedger(repo, time.Hour)

	assert.False(t, ledger.ProductCost("Widget").IsSet())
	_, err := ledger.SetProductCost("Widget", "12.50")
	require.NoError(t, err)

	assert.Equal(t, Entry("12.50"), ledger.ProductCost("Widget"))
	assert.Equal(t, 12.5, ledger.ProductCost("Widget").Float())
	assert.Empty(t, repo.products())
}

func TestProductCostDebounceCollapse(t *testing.T) {
	repo := &fakeRepo{}
	ledger, sched := newTestLedger(repo, 20*time.Millisecond)

	for _, v := range []string{"1", "2", "3"} {
		_, err := ledger.SetProductCost("Widget", v)
		require.NoError(t, err)
	}
	assert.Eventually(t, func() bool { return len(repo.products()) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, sched.Flush(context.Background()))
	assert.Equal(t, []productWrite{{"Widget", "3"}}, repo.products())
}

func TestSetProductCostValidation(t *testing.T) {
	ledger, sched := newTestLedger(&fakeRepo{}, time.Hour)

	_, err := ledger.SetProductCost("Widget", "abc")
	assert.ErrorIs(t, err, ErrInvalidValue)
	_, err = ledger.SetProductCost("Widget", "-2")
	assert.ErrorIs(t, err, ErrInvalidValue)
	_, err = ledger.SetProductCost(" ", "2")
	assert.ErrorIs(t, err, ErrEmptyProduct)
	assert.Zero(t, sched.Pending())
}

func TestClearingProductCostPersistsDeletion(t *testing.T) {
	repo := &fakeRepo{}
	ledger, sched := newTestLedger(repo, time.Hour)
	_, err := ledger.SetProductCost("Widget", "4")
	require.NoError(t, err)
	_, err = ledger.SetProductCost("Widget", "")
	require.NoError(t, err)

	require.NoError(t, sched.Flush(context.Background()))
	assert.False(t, ledger.ProductCost("Widget").IsSet())
	assert.Equal(t, []productWrite{{"Widget", ""}}, repo.products())
}

func TestAdCostRangeSummation(t *testing.T) {
	repo := &fakeRepo{snapshot: Snapshot{AdCostsByDate: map[string]map[string]map[Platform]Entry{
		"2024-01-01": {"Widget": {Facebook: "10"}},
		"2024-01-02": {"Widget": {Facebook: "5", TikTok: "7"}},
		"2024-01-03": {"Widget": {Facebook: "100"}},
	}}}
	ledger, _ := newTestLedger(repo, time.Hour)
	require.NoError(t, ledger.Load(context.Background()))

	rng := filters.Filter{StartDate: "2024-01-01", EndDate: "2024-01-02"}
	assert.Equal(t, 15.0, ledger.AdCost("Widget", Facebook, rng).Float())
	assert.Equal(t, 7.0, ledger.AdCost("Widget", TikTok, rng).Float())
	assert.Equal(t, 22.0, ledger.TotalAdCost("Widget", rng))

	empty := ledger.AdCost("Widget", Snapchat, rng)
	assert.True(t, empty.IsSet())
	assert.Zero(t, empty.Float())
	assert.Zero(t, ledger.AdCost("Gadget", Facebook, rng).Float())
}

func TestAdCostSingleDate(t *testing.T) {
	repo := &fakeRepo{snapshot: Snapshot{AdCostsByDate: map[string]map[string]map[Platform]Entry{
		"2024-01-05": {"Widget": {Google: "0"}},
		"2024-02-10": {"Widget": {Google: "8"}},
	}}}
	ledger, _ := newTestLedger(repo, time.Hour)
	require.NoError(t, ledger.Load(context.Background()))

	startOnly := filters.Filter{StartDate: "2024-01-05"}
	got := ledger.AdCost("Widget", Google, startOnly)
	assert.True(t, got.IsSet())
	assert.Equal(t, Entry("0"), got)

	assert.False(t, ledger.AdCost("Widget", Facebook, startOnly).IsSet())

	// no start date resolves to today
	assert.Equal(t, Entry("8"), ledger.AdCost("Widget", Google, filters.Filter{}))
	assert.Equal(t, Entry("8"), ledger.AdCost("Widget", Google, filters.Filter{EndDate: "2024-01-05"}))
	assert.Equal(t, Entry("8"), ledger.AdCost("Widget", Google, filters.Filter{StartDate: filters.All}))
}

func TestSetAdCostLandsOnPointDate(t *testing.T) {
	repo := &fakeRepo{}
	ledger, sched := newTestLedger(repo, time.Hour)
	rng := filters.Filter{StartDate: "2024-01-01", EndDate: "2024-01-31"}

	date, _, err := ledger.SetAdCost("Widget", Facebook, "30", rng)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-31", date)

	date, _, err = ledger.SetAdCost("Widget", TikTok, "4", filters.Filter{StartDate: "2024-01-10"})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", date)

	date, _, err = ledger.SetAdCost("Widget", Snapchat, "1", filters.Filter{})
	require.NoError(t, err)
	assert.Equal(t, "2024-02-10", date)

	assert.Equal(t, 30.0, ledger.AdCost("Widget", Facebook, rng).Float())
	assert.Equal(t, Entry("30"), ledger.AdCost("Widget", Facebook, filters.Filter{StartDate: "2024-01-31"}))
	assert.False(t, ledger.AdCost("Widget", Facebook, filters.Filter{StartDate: "2024-01-01"}).IsSet())

	require.NoError(t, sched.Flush(context.Background()))
	assert.ElementsMatch(t, []adWrite{
		{"2024-01-31", "Widget", Facebook, "30"},
		{"2024-01-10", "Widget", TikTok, "4"},
		{"2024-02-10", "Widget", Snapchat, "1"},
	}, repo.ads())
}

func TestSetAdCostRejectsUnknownPlatform(t *testing.T) {
	ledger, sched := newTestLedger(&fakeRepo{}, time.Hour)
	_, _, err := ledger.SetAdCost("Widget", Platform("myspace"), "3", filters.Filter{})
	assert.ErrorIs(t, err, ErrUnknownPlatform)
	_, _, err = ledger.SetAdCost("Widget", Facebook, "3$", filters.Filter{})
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Zero(t, sched.Pending())
	assert.Empty(t, ledger.Snapshot().AdCostsByDate)
}

func TestPersistenceFailureKeepsOptimisticValue(t *testing.T) {
	repo := &fakeRepo{saveErr: errors.New("backend rejected")}
	rec := &outcomes{}
	var failedKeys []string
	sched := debounce.New(debounce.Options{Delay: time.Hour, OnError: func(key string, _ error) {
		failedKeys = append(failedKeys, key)
	}})
	ledger := NewLedger(Options{Repository: repo, Scheduler: sched, Recorder: rec, Now: fixedNow})

	_, err := ledger.SetProductCost("Widget", "9")
	require.NoError(t, err)
	require.NoError(t, sched.Flush(context.Background()))

	assert.Equal(t, Entry("9"), ledger.ProductCost("Widget"))
	assert.Equal(t, []string{"product_Widget"}, failedKeys)
	assert.Equal(t, 1, rec.failed)
}

func TestDeleteAllProductCosts(t *testing.T) {
	repo := &fakeRepo{}
	ledger, sched := newTestLedger(repo, time.Hour)
	_, err := ledger.SetProductCost("Widget", "9")
	require.NoError(t, err)
	_, _, err = ledger.SetAdCost("Widget", Facebook, "2", filters.Filter{})
	require.NoError(t, err)

	require.NoError(t, ledger.DeleteAllProductCosts(context.Background()))
	assert.Empty(t, ledger.Snapshot().ProductCosts)
	assert.NotEmpty(t, ledger.Snapshot().AdCostsByDate)
	assert.Equal(t, 1, sched.Pending())

	require.NoError(t, sched.Flush(context.Background()))
	assert.Empty(t, repo.products())
	assert.Len(t, repo.ads(), 1)
}

func TestDeleteAllFailureRearmsAndKeepsState(t *testing.T) {
	repo := &fakeRepo{deleteErr: errors.New("boom")}
	ledger, sched := newTestLedger(repo, time.Hour)
	_, _, err := ledger.SetAdCost("Widget", Facebook, "2", filters.Filter{})
	require.NoError(t, err)
	before := ledger.Snapshot()

	err = ledger.DeleteAllAdCosts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "costs: delete ad costs")
	assert.Equal(t, before, ledger.Snapshot())
	assert.Equal(t, 1, sched.Pending())

	require.NoError(t, sched.Flush(context.Background()))
	assert.Equal(t, []adWrite{{"2024-02-10", "Widget", Facebook, "2"}}, repo.ads())
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	ledger, _ := newTestLedger(&fakeRepo{}, time.Hour)
	_, _, err := ledger.SetAdCost("Widget", Facebook, "2", filters.Filter{StartDate: "2024-01-01"})
	require.NoError(t, err)

	snap := ledger.Snapshot()
	snap.AdCostsByDate["2024-01-01"]["Widget"][Facebook] = "99"
	assert.Equal(t, Entry("2"), ledger.AdCost("Widget", Facebook, filters.Filter{StartDate: "2024-01-01"}))
}

func TestParsePlatform(t *testing.T) {
	for _, p := range Platforms {
		got, err := ParsePlatform(string(p))
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParsePlatform("FB")
	assert.ErrorIs(t, err, ErrUnknownPlatform)
}
