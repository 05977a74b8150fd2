package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/opsboard/opsboard/internal/jobs"
	"github.com/opsboard/opsboard/internal/orders"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Refresher re-reads orders from the upstream source into the shared cache.
type Refresher interface {
	Refresh(ctx context.Context) ([]orders.Record, error)
}

// OrdersSyncJob warms the Redis order cache.
type OrdersSyncJob struct {
	Loader  Refresher
	Source  string
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewOrdersSyncJob wires dependencies for the sync handler.
func NewOrdersSyncJob(loader Refresher, source string, logger *slog.Logger, metrics *jobmetrics.Metrics) *OrdersSyncJob {
	return &OrdersSyncJob{Loader: loader, Source: source, Logger: logger, Metrics: metrics}
}

// Handle processes orders:sync tasks.
func (j *OrdersSyncJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Loader == nil {
		return errors.New("orders sync: handler not configured")
	}
	var payload OrdersSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("orders sync: decode payload: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskOrdersSync)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("reason", payload.Reason), slog.String("source", j.Source))
	logger.Info("starting orders sync")

	recs, err := j.Loader.Refresh(ctx)
	if err != nil {
		logger.Error("orders sync failed", slog.Any("error", err))
		return err
	}
	j.metrics().SetRowsSynced(j.Source, len(recs))
	logger.Info("orders sync completed", slog.Int("rows", len(recs)))
	return nil
}

func (j *OrdersSyncJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *OrdersSyncJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
