package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/opsboard/opsboard/internal/orders"
	"github.com/opsboard/opsboard/internal/sheets"
)

// NewOrderSource builds the configured upstream order source.
func NewOrderSource(ctx context.Context, cfg *Config) (orders.Source, error) {
	switch cfg.OrdersSource {
	case SourceSheets:
		return sheets.NewAPISource(ctx, sheets.APIConfig{
			SpreadsheetID: cfg.SheetsSpreadsheetID,
			Range:         cfg.SheetsRange,
			Credentials:   cfg.SheetsCredentials,
		})
	case SourceProxy:
		return sheets.NewProxySource(cfg.ProxyBaseURL, cfg.ProxyToken, cfg.ProxyTimeout, http.DefaultClient), nil
	}
	return nil, fmt.Errorf("unknown orders source %q", cfg.OrdersSource)
}

// NewOrderLoader wires the source behind the shared Redis cache and retry policy.
func NewOrderLoader(cfg *Config, source orders.Source, client *redis.Client, logger *slog.Logger, recorder orders.FetchRecorder) *orders.Loader {
	return orders.NewLoader(
		source,
		orders.NewCache(client, cfg.OrdersCacheTTL),
		orders.Backoff{Base: cfg.FetchRetryBase, Attempts: cfg.FetchRetryAttempts},
		logger,
		recorder,
	)
}
