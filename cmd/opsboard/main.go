package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/text/language"

	"github.com/opsboard/opsboard/internal/app"
	"github.com/opsboard/opsboard/internal/auth"
	"github.com/opsboard/opsboard/internal/costs"
	dashboardhttp "github.com/opsboard/opsboard/internal/dashboard/http"
	"github.com/opsboard/opsboard/internal/observability"
	"github.com/opsboard/opsboard/internal/platform/cache"
	"github.com/opsboard/opsboard/internal/platform/db"
	"github.com/opsboard/opsboard/internal/status"
	"github.com/opsboard/opsboard/internal/users"
	"github.com/opsboard/opsboard/internal/workspace"
	"github.com/opsboard/opsboard/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	ctx, stop := app.SignalContext()
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	if cfg.DBMigrateOnStart {
		if err := db.Migrate(cfg.PGDSN); err != nil {
			logger.Error("migrate database", slog.Any("error", err))
			os.Exit(1)
		}
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	source, err := app.NewOrderSource(ctx, cfg)
	if err != nil {
		logger.Error("init order source", slog.Any("error", err))
		os.Exit(1)
	}
	loader := app.NewOrderLoader(cfg, source, redisClient, logger, metrics)

	registry := workspace.NewRegistry(workspace.Deps{
		Redis:        redisClient,
		StatusRepo:   status.NewRepository(pool),
		CostRepo:     costs.NewRepository(pool),
		Loader:       loader,
		CostRecorder: metrics,
		Logger:       logger,
		Location:     cfg.Location(),
		Debounce:     cfg.CostDebounce,
		WriteTimeout: cfg.CostWriteTimeout,
		TTL:          cfg.WorkspaceTTL,
		BuildTimeout: cfg.WorkspaceBuild,
	})

	authService := auth.NewService(
		auth.NewRepository(pool),
		auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL),
		auth.NewRevocations(redisClient),
	)
	authService.OnLogout(registry.Evict)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Authenticator:    authService,
		AuthHandler:      auth.NewHandler(logger, authService),
		UsersHandler:     users.NewHandler(logger, users.NewService(users.NewRepository(pool))),
		DashboardHandler: dashboardhttp.NewHandler(logger, registry, language.Make(cfg.SortLocale)),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("source", cfg.OrdersSource))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	if err := registry.Close(shutdownCtx); err != nil {
		logger.Error("flush workspaces", slog.Any("error", err))
	}
}
