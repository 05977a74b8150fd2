package dashboardhttp

import (
	"net/http"

	"github.com/opsboard/opsboard/internal/orders"
	"github.com/opsboard/opsboard/internal/platform/httpx"
	"github.com/opsboard/opsboard/internal/stats"
	"github.com/opsboard/opsboard/internal/status"
	"github.com/opsboard/opsboard/internal/workspace"
)

type orderView struct {
	orders.Order
	Classification status.Classification `json:"classification"`
}

type ordersResponse struct {
	Orders     []orderView          `json:"orders"`
	Pagination stats.Pagination     `json:"pagination"`
	Fetch      workspace.FetchState `json:"fetch"`
}

func (h *Handler) handleOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), 1, "page")
	if err != nil {
		h.fail(w, "parse query", err)
		return
	}
	perPage, err := intParam(q.Get("perPage"), stats.DefaultPerPage, "perPage")
	if err != nil {
		h.fail(w, "parse query", err)
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	scoped := stats.Scope(ws.Orders(), ws.Filters.Get())
	slice, meta := stats.Paginate(scoped, page, perPage)
	cfg := ws.Statuses.Snapshot()
	views := make([]orderView, len(slice))
	for i, o := range slice {
		views[i] = orderView{Order: o, Classification: cfg.Classify(o.Status)}
	}
	httpx.JSON(w, http.StatusOK, ordersResponse{Orders: views, Pagination: meta, Fetch: ws.FetchState()})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if err := ws.Refresh(r.Context()); err != nil {
		h.fail(w, "refresh orders", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ws.FetchState())
}
