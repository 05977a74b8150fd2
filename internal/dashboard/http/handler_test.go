package dashboardhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/opsboard/opsboard/internal/auth"
	"github.com/opsboard/opsboard/internal/costs"
	"github.com/opsboard/opsboard/internal/orders"
	"github.com/opsboard/opsboard/internal/stats"
	"github.com/opsboard/opsboard/internal/workspace"
)

type stubLoader struct {
	records []orders.Record
	err     error
}

func (s *stubLoader) Load(context.Context) ([]orders.Record, error)    { return s.records, s.err }
func (s *stubLoader) Refresh(context.Context) ([]orders.Record, error) { return s.records, s.err }

type memCosts struct {
	mu    sync.Mutex
	saved map[string]costs.Entry
}

func (m *memCosts) Load(context.Context) (costs.Snapshot, error) { return costs.Snapshot{}, nil }
func (m *memCosts) SaveProductCost(_ context.Context, product string, v costs.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved["product_"+product] = v
	return nil
}
func (m *memCosts) SaveAdCost(_ context.Context, date, product string, p costs.Platform, v costs.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[fmt.Sprintf("ad_%s_%s_%s", date, product, p)] = v
	return nil
}
func (m *memCosts) DeleteAllProductCosts(context.Context) error { return nil }
func (m *memCosts) DeleteAllAdCosts(context.Context) error      { return nil }

type fixture struct {
	router http.Handler
	mr     *miniredis.Miniredis
	loader *stubLoader
	costs  *memCosts
}

func sampleRecords() []orders.Record {
	return []orders.Record{
		{"Order ID": "1", "Date": "2024-01-05", "Status": "Delivered", "Amount": "100", "Quantity": "2", "Product Name": "Widget", "City": "Riyadh"},
		{"Order ID": "2", "Date": "2024-01-05", "Status": "Confirmed", "Amount": "80", "Quantity": "1", "Product Name": "Widget", "City": "Jeddah"},
		{"Order ID": "3", "Date": "2024-01-06", "Status": "Returned", "Amount": "50", "Quantity": "1", "Product Name": "Gadget", "City": "Riyadh"},
		{"Order ID": "4", "Date": "2024-01-07", "Status": "New", "Amount": "70", "Quantity": "1", "Product Name": "Widget", "City": "Riyadh"},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{mr: mr, loader: &stubLoader{records: sampleRecords()}, costs: &memCosts{saved: map[string]costs.Entry{}}}
	reg := workspace.NewRegistry(workspace.Deps{
		Redis:    client,
		CostRepo: f.costs,
		Loader:   f.loader,
		Debounce: time.Hour,
		TTL:      time.Hour,
		Now:      func() time.Time { return time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC) },
	})
	t.Cleanup(func() { _ = reg.Close(context.Background()) })

	h := NewHandler(nil, reg, language.English)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			p := &auth.Principal{UserID: 42, Role: auth.RoleUser}
			next.ServeHTTP(w, req.WithContext(auth.WithPrincipal(req.Context(), p)))
		})
	})
	r.Route("/api", h.MountRoutes)
	f.router = r
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestProductStats(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/api/stats/products", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[statsResponse](t, rr)

	require.Len(t, resp.Rows, 2)
	widget := resp.Rows[0]
	assert.Equal(t, "Widget", widget.Key)
	assert.Equal(t, 3, widget.TotalLeads)
	assert.Equal(t, 2, widget.Confirmation)
	assert.Equal(t, 1, widget.Delivery)
	assert.Equal(t, 1, widget.InProcess)
	assert.Equal(t, 4, widget.TotalQuantity)
	assert.InDelta(t, 100, widget.TotalAmount, 1e-9)
	assert.InDelta(t, 50, widget.DeliveryPercent, 1e-9)

	assert.Equal(t, 4, resp.Totals.TotalLeads)
	assert.Equal(t, 5, resp.Totals.TotalQuantity)
	assert.InDelta(t, 75, resp.Rates.ConfirmationPercent, 1e-9)
	assert.Equal(t, 1, resp.Pagination.TotalPages)
}

func TestStatsSortAndPaginate(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/api/stats/cities?sort=key&dir=asc&perPage=1&page=2", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[statsResponse](t, rr)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "Riyadh", resp.Rows[0].Key)
	assert.Equal(t, stats.Pagination{Page: 2, PerPage: 1, Total: 2, TotalPages: 2}, resp.Pagination)
	assert.Equal(t, 4, resp.Totals.TotalLeads)
}

func TestStatsRejectsBadQuery(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{
		"/api/stats/products?sort=bogus",
		"/api/stats/products?dir=sideways",
		"/api/stats/products?page=0",
		"/api/stats/warehouses",
	} {
		rr := f.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, path)
	}
}

func TestProductCostFlowsIntoStats(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodPut, "/api/costs/products", `{"product":"Widget","value":"10"}`)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	rr = f.do(http.MethodPut, "/api/costs/ads", `{"product":"Widget","platform":"fb","value":"30"}`)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	write := decode[costWriteResponse](t, rr)
	assert.Equal(t, "2024-01-20", write.Date)

	rr = f.do(http.MethodPatch, "/api/filters", `{"key":"startDate","value":"2024-01-20"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = f.do(http.MethodGet, "/api/costs", "")
	require.Equal(t, http.StatusOK, rr.Code)
	snap := decode[costsResponse](t, rr)
	assert.Equal(t, costs.Entry("10"), snap.ProductCosts["Widget"])
	assert.Equal(t, costs.Entry("30"), snap.AdCostsByDate["2024-01-20"]["Widget"][costs.Facebook])

	rr = f.do(http.MethodPatch, "/api/filters", `{"key":"startDate","value":"all"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = f.do(http.MethodGet, "/api/stats/products", "")
	resp := decode[statsResponse](t, rr)
	widget := resp.Rows[0]
	assert.InDelta(t, 10, widget.CostPrice, 1e-9)
	assert.InDelta(t, 30, widget.AdCost, 1e-9)
	assert.InDelta(t, 10, widget.AvgCost, 1e-9)
	assert.InDelta(t, 70, widget.TotalCost, 1e-9)
	assert.InDelta(t, 30, widget.NetProfit, 1e-9)
}

func TestAdCostsFollowActiveFilter(t *testing.T) {
	f := newFixture(t)
	patch := func(key, value string) {
		t.Helper()
		rr := f.do(http.MethodPatch, "/api/filters", fmt.Sprintf(`{"key":%q,"value":%q}`, key, value))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}
	read := func() adCostsResponse {
		t.Helper()
		rr := f.do(http.MethodGet, "/api/costs/ads?product=Widget", "")
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		return decode[adCostsResponse](t, rr)
	}

	patch("startDate", "2024-01-01")
	rr := f.do(http.MethodPut, "/api/costs/ads", `{"product":"Widget","platform":"fb","value":"10"}`)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	patch("startDate", "2024-01-02")
	rr = f.do(http.MethodPut, "/api/costs/ads", `{"product":"Widget","platform":"fb","value":"5"}`)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	single := read()
	assert.Equal(t, costs.Entry("5"), single.Platforms[costs.Facebook])
	assert.Equal(t, costs.Entry(""), single.Platforms[costs.TikTok])
	assert.Len(t, single.Platforms, len(costs.Platforms))
	assert.InDelta(t, 5, single.Total, 1e-9)

	patch("startDate", "2024-01-01")
	patch("endDate", "2024-01-02")
	ranged := read()
	assert.Equal(t, costs.Entry("15"), ranged.Platforms[costs.Facebook])
	assert.Equal(t, costs.Entry("0"), ranged.Platforms[costs.TikTok])
	assert.InDelta(t, 15, ranged.Total, 1e-9)

	rr = f.do(http.MethodPost, "/api/filters/reset", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	unset := read()
	assert.Equal(t, costs.Entry(""), unset.Platforms[costs.Facebook])
	assert.Zero(t, unset.Total)

	rr = f.do(http.MethodGet, "/api/costs/ads", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCostValidation(t *testing.T) {
	f := newFixture(t)

	cases := map[string]string{
		"/api/costs/ads|unknown platform":    `{"product":"Widget","platform":"myspace","value":"1"}`,
		"/api/costs/ads|non numeric":         `{"product":"Widget","platform":"tt","value":"abc"}`,
		"/api/costs/products|missing name":   `{"value":"1"}`,
		"/api/costs/products|negative value": `{"product":"Widget","value":"-4"}`,
	}
	for name, body := range cases {
		path := strings.SplitN(name, "|", 2)[0]
		rr := f.do(http.MethodPut, path, body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, name)
	}
	rr := f.do(http.MethodGet, "/api/costs", "")
	snap := decode[costsResponse](t, rr)
	assert.Empty(t, snap.ProductCosts)
	assert.Empty(t, snap.AdCostsByDate)
}

func TestRatesValidationAndConversion(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/api/stats/products", "")
	before := decode[statsResponse](t, rr)
	require.InDelta(t, 100, before.Rows[0].TotalAmount, 1e-9)

	rr = f.do(http.MethodPut, "/api/rates", `{"country":"KSA","rate":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = f.do(http.MethodPut, "/api/rates", `{"rate":"0"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.False(t, f.mr.Exists("opsboard:rates:42"))

	rr = f.do(http.MethodPut, "/api/rates", `{"rate":"2"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "2", f.mr.HGet("opsboard:rates:42", "*"))

	rr = f.do(http.MethodGet, "/api/stats/products", "")
	resp := decode[statsResponse](t, rr)
	assert.InDelta(t, 100, resp.Rows[0].TotalAmount, 1e-9, "loaded orders keep their rate until refetched")

	rr = f.do(http.MethodPost, "/api/orders/refresh", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = f.do(http.MethodGet, "/api/stats/products", "")
	resp = decode[statsResponse](t, rr)
	assert.InDelta(t, 200, resp.Rows[0].TotalAmount, 1e-9)

	rr = f.do(http.MethodDelete, "/api/rates?country=KSA", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = f.do(http.MethodGet, "/api/stats/products", "")
	resp = decode[statsResponse](t, rr)
	assert.InDelta(t, 200, resp.Rows[0].TotalAmount, 1e-9)
}

func TestStatusConfigEndpoints(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodPatch, "/api/status-config", `{"category":"delivery","status":"Confirmed","included":true}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	cfg := decode[statusConfigResponse](t, rr)
	assert.Contains(t, cfg.Config.Delivery, "Confirmed")

	rr = f.do(http.MethodGet, "/api/stats/products", "")
	resp := decode[statsResponse](t, rr)
	assert.Equal(t, 2, resp.Rows[0].Delivery)

	rr = f.do(http.MethodPatch, "/api/status-config", `{"category":"shipping","status":"Confirmed","included":true}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(http.MethodPost, "/api/status-config/statuses", `{"name":"Delivered"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	rr = f.do(http.MethodGet, "/api/notices", "")
	notices := decode[[]workspace.Notice](t, rr)
	require.Len(t, notices, 1)
	assert.Equal(t, workspace.LevelWarning, notices[0].Level)

	rr = f.do(http.MethodPost, "/api/status-config/statuses", `{"name":"Lost"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	cfg = decode[statusConfigResponse](t, rr)
	assert.Contains(t, cfg.Statuses, "Lost")

	rr = f.do(http.MethodPost, "/api/status-config/reset", "")
	require.Equal(t, http.StatusOK, rr.Code)
	cfg = decode[statusConfigResponse](t, rr)
	assert.NotContains(t, cfg.Config.Delivery, "Confirmed")
	assert.Contains(t, cfg.Statuses, "Lost")
}

func TestFiltersScopeOrders(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodPatch, "/api/filters", `{"key":"endDate","value":"05/01/2024"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = f.do(http.MethodPatch, "/api/filters", `{"key":"warehouse","value":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(http.MethodPatch, "/api/filters", `{"key":"city","value":"Riyadh"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = f.do(http.MethodGet, "/api/orders", "")
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[ordersResponse](t, rr)
	assert.Len(t, resp.Orders, 3)
	assert.True(t, resp.Orders[0].Classification.Delivery)

	rr = f.do(http.MethodPost, "/api/filters/reset", "")
	require.Equal(t, http.StatusOK, rr.Code)
	rr = f.do(http.MethodGet, "/api/orders", "")
	resp = decode[ordersResponse](t, rr)
	assert.Len(t, resp.Orders, 4)
}

func TestExportsAndCharts(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/api/stats/products/export.csv", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "Product,"))
	assert.True(t, strings.HasPrefix(lines[3], "Total,4,"))

	rr = f.do(http.MethodGet, "/api/stats/trend.svg?metric=revenue", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/svg+xml", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "<svg")

	rr = f.do(http.MethodGet, "/api/stats/trend.svg?metric=profit", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(http.MethodGet, "/api/stats/cities/chart.svg", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Riyadh")

	rr = f.do(http.MethodGet, "/api/stats/trend", "")
	trend := decode[trendResponse](t, rr)
	require.Len(t, trend.Points, 3)
	assert.Equal(t, "2024-01-05", trend.Points[0].Date)
}

func TestFetchFailureLeavesEmptyDashboard(t *testing.T) {
	f := newFixture(t)
	f.loader.err = fmt.Errorf("%w: sheet unreachable", orders.ErrFetch)

	rr := f.do(http.MethodGet, "/api/stats/products", "")
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[statsResponse](t, rr)
	assert.Empty(t, resp.Rows)
	assert.Contains(t, resp.Fetch.Error, "sheet unreachable")

	rr = f.do(http.MethodPost, "/api/orders/refresh", "")
	assert.Equal(t, http.StatusBadGateway, rr.Code)

	f.loader.err = nil
	rr = f.do(http.MethodPost, "/api/orders/refresh", "")
	require.Equal(t, http.StatusOK, rr.Code)
	rr = f.do(http.MethodGet, "/api/stats/products", "")
	resp = decode[statsResponse](t, rr)
	assert.Len(t, resp.Rows, 2)
}
