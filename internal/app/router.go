package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/opsboard/opsboard/internal/auth"
	dashboardhttp "github.com/opsboard/opsboard/internal/dashboard/http"
	"github.com/opsboard/opsboard/internal/observability"
	"github.com/opsboard/opsboard/internal/users"
	"github.com/opsboard/opsboard/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Authenticator    auth.Authenticator
	AuthHandler      *auth.Handler
	UsersHandler     *users.Handler
	DashboardHandler *dashboardhttp.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	authn := auth.Middleware(params.Authenticator, params.Logger)
	if params.AuthHandler != nil {
		r.Route("/auth", func(r chi.Router) {
			params.AuthHandler.MountPublic(r)
			r.Group(func(r chi.Router) {
				r.Use(authn)
				params.AuthHandler.MountProtected(r)
			})
		})
	}
	if params.DashboardHandler != nil {
		r.Route("/api", func(r chi.Router) {
			r.Use(authn)
			params.DashboardHandler.MountRoutes(r)
		})
	}
	if params.UsersHandler != nil {
		r.Route("/admin/users", func(r chi.Router) {
			r.Use(authn, auth.RequireAdmin)
			params.UsersHandler.MountRoutes(r)
		})
	}
	return r
}
