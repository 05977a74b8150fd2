// Package dashboardhttp exposes the dashboard workspace over a JSON API.
package dashboardhttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"

	"github.com/opsboard/opsboard/internal/auth"
	"github.com/opsboard/opsboard/internal/costs"
	"github.com/opsboard/opsboard/internal/currency"
	"github.com/opsboard/opsboard/internal/filters"
	"github.com/opsboard/opsboard/internal/orders"
	"github.com/opsboard/opsboard/internal/platform/httpx"
	"github.com/opsboard/opsboard/internal/stats"
	"github.com/opsboard/opsboard/internal/status"
	"github.com/opsboard/opsboard/internal/workspace"
)

// Workspaces resolves the caller's workspace.
type Workspaces interface {
	Get(ctx context.Context, userID int64) (*workspace.Workspace, error)
}

// Handler serves the dashboard API.
type Handler struct {
	logger     *slog.Logger
	workspaces Workspaces
	locale     language.Tag
	validator  *validator.Validate
	csvPool    sync.Pool
}

// NewHandler constructs the dashboard handler. Keys sort by locale collation.
func NewHandler(logger *slog.Logger, workspaces Workspaces, locale language.Tag) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:     logger,
		workspaces: workspaces,
		locale:     locale,
		validator:  validator.New(),
	}
	h.csvPool.New = func() any { return new(bytes.Buffer) }
	return h
}

// workspace resolves the caller's workspace or writes the error response.
func (h *Handler) workspace(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "bearer token required")
		return nil, false
	}
	ws, err := h.workspaces.Get(r.Context(), p.UserID)
	if err != nil {
		h.fail(w, "open workspace", err)
		return nil, false
	}
	return ws, true
}

// decode reads and validates a JSON body.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		fields := map[string]string{}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
		} else {
			fields["general"] = err.Error()
		}
		httpx.ValidationProblem(w, fields)
		return false
	}
	return true
}

var inputErrors = []error{
	costs.ErrUnknownPlatform,
	costs.ErrInvalidValue,
	costs.ErrEmptyProduct,
	currency.ErrInvalidRate,
	currency.ErrInvalidCountry,
	status.ErrUnknownCategory,
	status.ErrEmptyStatus,
	filters.ErrUnknownKey,
	filters.ErrInvalidDate,
	stats.ErrUnknownGroup,
	stats.ErrUnknownSortField,
}

// fail maps domain errors onto problem responses.
func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	for _, target := range inputErrors {
		if errors.Is(err, target) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
	}
	switch {
	case errors.Is(err, status.ErrStatusExists):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, orders.ErrFetch):
		h.logger.Warn(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Upstream Unavailable", err.Error())
	case errors.Is(err, httpx.ErrValidation):
		httpx.RespondError(w, err)
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func invalid(field, msg string) error {
	return fmt.Errorf("%w: %s: %s", httpx.ErrValidation, field, msg)
}

// listQuery carries the sort and page parameters of table endpoints.
type listQuery struct {
	sortField string
	sortDir   stats.Direction
	page      int
	perPage   int
}

func parseListQuery(r *http.Request, defaultSort string) (listQuery, error) {
	q := r.URL.Query()
	field := q.Get("sort")
	if field == "" {
		field = defaultSort
	}
	dir := q.Get("dir")
	if dir == "" && field == defaultSort && defaultSort != stats.KeyField {
		dir = string(stats.Desc)
	}
	field, direction, err := stats.ParseSort(field, dir)
	if err != nil {
		if errors.Is(err, stats.ErrUnknownSortField) {
			return listQuery{}, err
		}
		return listQuery{}, invalid("dir", err.Error())
	}
	page, err := intParam(q.Get("page"), 1, "page")
	if err != nil {
		return listQuery{}, err
	}
	perPage, err := intParam(q.Get("perPage"), stats.DefaultPerPage, "perPage")
	if err != nil {
		return listQuery{}, err
	}
	if perPage > 500 {
		return listQuery{}, invalid("perPage", "must not exceed 500")
	}
	return listQuery{sortField: field, sortDir: direction, page: page, perPage: perPage}, nil
}

func intParam(raw string, fallback int, name string) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, invalid(name, "must be a positive integer")
	}
	return v, nil
}
