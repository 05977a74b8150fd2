package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/api/stats/products")

	req := httptest.NewRequest(http.MethodGet, "/api/stats/products", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	assert.Contains(t, body, `opsboard_http_requests_total{code="418",route="/api/stats/products"} 1`)
	assert.Contains(t, body, `opsboard_http_request_duration_seconds_bucket{route="/api/stats/products"`)
}

func TestCostWriteAndOrderFetchCounters(t *testing.T) {
	metrics := NewMetrics()
	metrics.CostWrite("product", nil)
	metrics.CostWrite("ad", errors.New("backend down"))
	metrics.OrderFetch(nil)

	body := scrape(t, metrics)
	assert.Contains(t, body, `opsboard_cost_writes_total{kind="product",outcome="success"} 1`)
	assert.Contains(t, body, `opsboard_cost_writes_total{kind="ad",outcome="failure"} 1`)
	assert.Contains(t, body, `opsboard_order_fetches_total{outcome="success"} 1`)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.CostWrite("product", nil)
	m.OrderFetch(nil)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
