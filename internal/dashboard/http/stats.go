package dashboardhttp

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/opsboard/opsboard/internal/filters"
	"github.com/opsboard/opsboard/internal/platform/httpx"
	"github.com/opsboard/opsboard/internal/stats"
	"github.com/opsboard/opsboard/internal/stats/chart"
	"github.com/opsboard/opsboard/internal/stats/export"
	"github.com/opsboard/opsboard/internal/workspace"
)

const (
	defaultSort    = "totalLeads"
	chartWidth     = 720
	chartHeight    = 320
	chartMaxGroups = 10
)

var groupPaths = map[string]stats.GroupKey{
	"products":  stats.ByProduct,
	"cities":    stats.ByCity,
	"agents":    stats.ByAgent,
	"countries": stats.ByCountry,
}

var groupHeaders = map[stats.GroupKey]string{
	stats.ByProduct: "Product",
	stats.ByCity:    "City",
	stats.ByAgent:   "Agent",
	stats.ByCountry: "Country",
}

type statsResponse struct {
	Group      stats.GroupKey       `json:"group"`
	Filter     filters.Filter       `json:"filter"`
	Rows       []stats.Row          `json:"rows"`
	Totals     stats.Totals         `json:"totals"`
	Rates      stats.Rates          `json:"rates"`
	Pagination stats.Pagination     `json:"pagination"`
	Fetch      workspace.FetchState `json:"fetch"`
}

// groupRows runs the aggregation pipeline for one group key.
func groupRows(ws *workspace.Workspace, key stats.GroupKey) ([]stats.Row, filters.Filter) {
	f := ws.Filters.Get()
	rows := stats.Aggregate(ws.Orders(), f, ws.Statuses.Snapshot(), key)
	if key == stats.ByProduct {
		rows = stats.ApplyCosts(rows, ws.Costs, f)
	}
	return rows, f
}

func parseGroup(r *http.Request) (stats.GroupKey, error) {
	segment := chi.URLParam(r, "group")
	if key, ok := groupPaths[segment]; ok {
		return key, nil
	}
	return stats.ParseGroupKey(segment)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	key, err := parseGroup(r)
	if err != nil {
		h.fail(w, "parse group", err)
		return
	}
	q, err := parseListQuery(r, defaultSort)
	if err != nil {
		h.fail(w, "parse query", err)
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	rows, f := groupRows(ws, key)
	totals := stats.Total(rows)
	page, meta := stats.Paginate(stats.Sort(rows, q.sortField, q.sortDir, h.locale), q.page, q.perPage)
	httpx.JSON(w, http.StatusOK, statsResponse{
		Group:      key,
		Filter:     f,
		Rows:       page,
		Totals:     totals,
		Rates:      totals.Rates(),
		Pagination: meta,
		Fetch:      ws.FetchState(),
	})
}

func (h *Handler) handleStatsCSV(w http.ResponseWriter, r *http.Request) {
	key, err := parseGroup(r)
	if err != nil {
		h.fail(w, "parse group", err)
		return
	}
	q, err := parseListQuery(r, defaultSort)
	if err != nil {
		h.fail(w, "parse query", err)
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	rows, _ := groupRows(ws, key)
	totals := stats.Total(rows)
	rows = stats.Sort(rows, q.sortField, q.sortDir, h.locale)

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()
	opts := export.Options{KeyHeader: groupHeaders[key], WithCosts: key == stats.ByProduct}
	if err := export.WriteRowsCSV(buf, rows, totals, opts); err != nil {
		h.fail(w, "write stats csv", err)
		return
	}
	h.streamCSV(w, fmt.Sprintf("stats-%s.csv", key), buf.Bytes())
}

func (h *Handler) handleStatsChart(w http.ResponseWriter, r *http.Request) {
	key, err := parseGroup(r)
	if err != nil {
		h.fail(w, "parse group", err)
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	rows, _ := groupRows(ws, key)
	rows = stats.Sort(rows, defaultSort, stats.Desc, h.locale)
	if len(rows) > chartMaxGroups {
		rows = rows[:chartMaxGroups]
	}
	if len(rows) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	labels := make([]string, len(rows))
	series := []chart.Series{{Label: "Confirmed"}, {Label: "Delivered"}, {Label: "Returned"}}
	for i, row := range rows {
		labels[i] = row.Key
		series[0].Values = append(series[0].Values, float64(row.Confirmation))
		series[1].Values = append(series[1].Values, float64(row.Delivery))
		series[2].Values = append(series[2].Values, float64(row.Returned))
	}
	svg, err := chart.Bars(chartWidth, chartHeight, series, labels, chart.Style{
		Title:       groupHeaders[key] + " outcomes",
		Description: "Confirmed, delivered and returned orders per " + strings.ToLower(groupHeaders[key]),
	})
	if err != nil {
		h.fail(w, "render bars", err)
		return
	}
	h.streamSVG(w, svg)
}

type trendResponse struct {
	Filter filters.Filter     `json:"filter"`
	Points []stats.TrendPoint `json:"points"`
}

func (h *Handler) trend(ws *workspace.Workspace) ([]stats.TrendPoint, filters.Filter) {
	f := ws.Filters.Get()
	return stats.DailyTrend(ws.Orders(), f, ws.Statuses.Snapshot()), f
}

func (h *Handler) handleTrend(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	points, f := h.trend(ws)
	if points == nil {
		points = []stats.TrendPoint{}
	}
	httpx.JSON(w, http.StatusOK, trendResponse{Filter: f, Points: points})
}

func (h *Handler) handleTrendCSV(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	points, _ := h.trend(ws)
	var buf bytes.Buffer
	if err := export.WriteTrendCSV(&buf, points); err != nil {
		h.fail(w, "write trend csv", err)
		return
	}
	h.streamCSV(w, "trend.csv", buf.Bytes())
}

var trendMetrics = map[string]func(stats.TrendPoint) float64{
	"leads":     func(p stats.TrendPoint) float64 { return float64(p.Leads) },
	"confirmed": func(p stats.TrendPoint) float64 { return float64(p.Confirmed) },
	"delivered": func(p stats.TrendPoint) float64 { return float64(p.Delivered) },
	"returned":  func(p stats.TrendPoint) float64 { return float64(p.Returned) },
	"revenue":   func(p stats.TrendPoint) float64 { return p.Revenue },
}

func (h *Handler) handleTrendSVG(w http.ResponseWriter, r *http.Request) {
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = "leads"
	}
	value, ok := trendMetrics[metric]
	if !ok {
		h.fail(w, "parse metric", invalid("metric", "unknown metric "+metric))
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	points, _ := h.trend(ws)
	if len(points) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	series := make([]float64, len(points))
	labels := make([]string, len(points))
	for i, p := range points {
		series[i] = value(p)
		labels[i] = p.Date
	}
	svg, err := chart.Line(chartWidth, chartHeight, series, labels, chart.LineStyle{
		Style:    chart.Style{Title: "Daily " + metric, Description: "Daily " + metric + " for the active filter"},
		ShowDots: len(points) <= 31,
	})
	if err != nil {
		h.fail(w, "render line", err)
		return
	}
	h.streamSVG(w, svg)
}

func (h *Handler) streamCSV(w http.ResponseWriter, filename string, body []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(body); err != nil {
		h.logger.Warn("stream csv", "error", err)
	}
}

func (h *Handler) streamSVG(w http.ResponseWriter, svg []byte) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(svg); err != nil {
		h.logger.Warn("stream svg", "error", err)
	}
}
