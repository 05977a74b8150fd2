package dashboardhttp

import (
	"net/http"
	"strings"

	"github.com/opsboard/opsboard/internal/costs"
	"github.com/opsboard/opsboard/internal/filters"
	"github.com/opsboard/opsboard/internal/platform/httpx"
	"github.com/opsboard/opsboard/internal/workspace"
)

type costsResponse struct {
	costs.Snapshot
	Filter filters.Filter `json:"filter"`
}

// adCostsResponse reads every platform under the active filter. Unset
// single-date values are "" rather than 0.
type adCostsResponse struct {
	Product   string                         `json:"product"`
	Filter    filters.Filter                 `json:"filter"`
	Platforms map[costs.Platform]costs.Entry `json:"platforms"`
	Total     float64                        `json:"total"`
}

type productCostRequest struct {
	Product string `json:"product" validate:"required"`
	Value   string `json:"value"`
}

type adCostRequest struct {
	Product  string         `json:"product" validate:"required"`
	Platform costs.Platform `json:"platform" validate:"required,oneof=fb tt google x snap"`
	Value    string         `json:"value"`
}

type costWriteResponse struct {
	Product  string         `json:"product"`
	Platform costs.Platform `json:"platform,omitempty"`
	Date     string         `json:"date,omitempty"`
	Value    costs.Entry    `json:"value"`
}

func (h *Handler) handleCosts(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, costsResponse{Snapshot: ws.Costs.Snapshot(), Filter: ws.Filters.Get()})
}

func (h *Handler) handleAdCosts(w http.ResponseWriter, r *http.Request) {
	product := strings.TrimSpace(r.URL.Query().Get("product"))
	if product == "" {
		h.fail(w, "read ad costs", invalid("product", "is required"))
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	filter := ws.Filters.Get()
	resp := adCostsResponse{Product: product, Filter: filter, Platforms: make(map[costs.Platform]costs.Entry, len(costs.Platforms))}
	for _, p := range costs.Platforms {
		resp.Platforms[p] = ws.Costs.AdCost(product, p, filter)
	}
	resp.Total = ws.Costs.TotalAdCost(product, filter)
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSetProductCost(w http.ResponseWriter, r *http.Request) {
	var req productCostRequest
	if !h.decode(w, r, &req) {
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	value, err := ws.Costs.SetProductCost(req.Product, req.Value)
	if err != nil {
		h.fail(w, "set product cost", err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, costWriteResponse{Product: req.Product, Value: value})
}

func (h *Handler) handleSetAdCost(w http.ResponseWriter, r *http.Request) {
	var req adCostRequest
	if !h.decode(w, r, &req) {
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	date, value, err := ws.Costs.SetAdCost(req.Product, req.Platform, req.Value, ws.Filters.Get())
	if err != nil {
		h.fail(w, "set ad cost", err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, costWriteResponse{Product: req.Product, Platform: req.Platform, Date: date, Value: value})
}

func (h *Handler) handleDeleteProductCosts(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if err := ws.Costs.DeleteAllProductCosts(r.Context()); err != nil {
		ws.Notices.Push(workspace.LevelError, "Could not delete product costs")
		h.fail(w, "delete product costs", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteAdCosts(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if err := ws.Costs.DeleteAllAdCosts(r.Context()); err != nil {
		ws.Notices.Push(workspace.LevelError, "Could not delete ad costs")
		h.fail(w, "delete ad costs", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
