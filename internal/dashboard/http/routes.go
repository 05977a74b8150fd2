package dashboardhttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/opsboard/opsboard/internal/auth"
)

// MountRoutes registers dashboard endpoints. Callers apply auth.Middleware.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(20, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/orders", h.handleOrders)
	r.With(limiter).Post("/orders/refresh", h.handleRefresh)

	r.Route("/stats", func(r chi.Router) {
		r.Get("/trend", h.handleTrend)
		r.Get("/trend.csv", h.handleTrendCSV)
		r.Get("/trend.svg", h.handleTrendSVG)
		r.Get("/{group}", h.handleStats)
		r.With(limiter).Get("/{group}/export.csv", h.handleStatsCSV)
		r.Get("/{group}/chart.svg", h.handleStatsChart)
	})

	r.Route("/costs", func(r chi.Router) {
		r.Get("/", h.handleCosts)
		r.Get("/ads", h.handleAdCosts)
		r.Put("/products", h.handleSetProductCost)
		r.Put("/ads", h.handleSetAdCost)
		r.Delete("/products", h.handleDeleteProductCosts)
		r.Delete("/ads", h.handleDeleteAdCosts)
	})

	r.Route("/status-config", func(r chi.Router) {
		r.Get("/", h.handleStatusConfig)
		r.Patch("/", h.handleUpdateStatus)
		r.Post("/save", h.handleSaveStatusConfig)
		r.Post("/reset", h.handleResetStatusConfig)
		r.Post("/statuses", h.handleAddStatus)
	})

	r.Route("/filters", func(r chi.Router) {
		r.Get("/", h.handleFilters)
		r.Patch("/", h.handleUpdateFilter)
		r.Post("/reset", h.handleResetFilters)
	})

	r.Route("/rates", func(r chi.Router) {
		r.Get("/", h.handleRates)
		r.Put("/", h.handleSetRate)
		r.Delete("/", h.handleRemoveRate)
	})

	r.Get("/notices", h.handleNotices)
}

func rateLimitKey(r *http.Request) (string, error) {
	if p := auth.PrincipalFromContext(r.Context()); p != nil {
		return "user:" + strconv.FormatInt(p.UserID, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
