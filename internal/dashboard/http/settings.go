package dashboardhttp

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/opsboard/opsboard/internal/currency"
	"github.com/opsboard/opsboard/internal/filters"
	"github.com/opsboard/opsboard/internal/platform/httpx"
	"github.com/opsboard/opsboard/internal/status"
	"github.com/opsboard/opsboard/internal/workspace"
)

type statusConfigResponse struct {
	Config   status.Config `json:"config"`
	Statuses []string      `json:"statuses"`
}

type statusUpdateRequest struct {
	Category status.Category `json:"category" validate:"required"`
	Status   string          `json:"status" validate:"required"`
	Included *bool           `json:"included" validate:"required"`
}

type customStatusRequest struct {
	Name string `json:"name" validate:"required"`
}

func statusConfig(ws *workspace.Workspace) statusConfigResponse {
	return statusConfigResponse{Config: ws.Statuses.Snapshot(), Statuses: ws.Statuses.Statuses()}
}

func (h *Handler) handleStatusConfig(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, statusConfig(ws))
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if err := ws.Statuses.Update(req.Category, req.Status, *req.Included); err != nil {
		h.fail(w, "update status config", err)
		return
	}
	httpx.JSON(w, http.StatusOK, statusConfig(ws))
}

func (h *Handler) handleSaveStatusConfig(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if err := ws.Statuses.Save(r.Context()); err != nil {
		ws.Notices.Push(workspace.LevelError, "Could not save status configuration")
		h.fail(w, "save status config", err)
		return
	}
	ws.Notices.Push(workspace.LevelInfo, "Status configuration saved")
	httpx.JSON(w, http.StatusOK, statusConfig(ws))
}

func (h *Handler) handleResetStatusConfig(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	ws.Statuses.Reset()
	if err := ws.Statuses.Save(r.Context()); err != nil {
		ws.Notices.Push(workspace.LevelError, "Could not save status configuration")
		h.fail(w, "reset status config", err)
		return
	}
	httpx.JSON(w, http.StatusOK, statusConfig(ws))
}

func (h *Handler) handleAddStatus(w http.ResponseWriter, r *http.Request) {
	var req customStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if err := ws.Statuses.AddCustomStatus(req.Name); err != nil {
		if errors.Is(err, status.ErrStatusExists) {
			ws.Notices.Push(workspace.LevelWarning, fmt.Sprintf("Status %q already exists", strings.TrimSpace(req.Name)))
		}
		h.fail(w, "add status", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, statusConfig(ws))
}

type filterUpdateRequest struct {
	Key   filters.Key `json:"key" validate:"required"`
	Value string      `json:"value"`
}

func (h *Handler) handleFilters(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, ws.Filters.Get())
}

func (h *Handler) handleUpdateFilter(w http.ResponseWriter, r *http.Request) {
	var req filterUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	f, err := ws.Filters.Update(r.Context(), req.Key, strings.TrimSpace(req.Value))
	if err != nil {
		h.fail(w, "update filter", err)
		return
	}
	httpx.JSON(w, http.StatusOK, f)
}

func (h *Handler) handleResetFilters(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	f, err := ws.Filters.Reset(r.Context())
	if err != nil {
		h.fail(w, "reset filters", err)
		return
	}
	httpx.JSON(w, http.StatusOK, f)
}

// rateRequest leaves Country empty to change the default rate.
type rateRequest struct {
	Country string `json:"country"`
	Rate    string `json:"rate" validate:"required"`
}

func (h *Handler) handleRates(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, ws.Rates.Snapshot())
}

func (h *Handler) handleSetRate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if !h.decode(w, r, &req) {
		return
	}
	rate, err := strconv.ParseFloat(strings.TrimSpace(req.Rate), 64)
	if err != nil {
		h.fail(w, "parse rate", fmt.Errorf("%w: %q", currency.ErrInvalidRate, req.Rate))
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Country) == "" {
		err = ws.Rates.SetDefault(r.Context(), rate)
	} else {
		err = ws.Rates.SetRate(r.Context(), req.Country, rate)
	}
	if err != nil {
		h.fail(w, "set rate", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ws.Rates.Snapshot())
}

func (h *Handler) handleRemoveRate(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if err := ws.Rates.RemoveRate(r.Context(), country); err != nil {
		h.fail(w, "remove rate", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ws.Rates.Snapshot())
}

func (h *Handler) handleNotices(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, ws.Notices.Drain())
}
