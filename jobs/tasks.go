package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOrdersSync refreshes the shared order snapshot from the sheet.
	TaskOrdersSync = "orders:sync"
)

// OrdersSyncPayload describes why a sync was requested.
type OrdersSyncPayload struct {
	Reason string `json:"reason"`
}

// NewOrdersSyncTask constructs an Asynq task.
func NewOrdersSyncTask(payload OrdersSyncPayload) (*asynq.Task, error) {
	if payload.Reason == "" {
		payload.Reason = "schedule"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrdersSync, data), nil
}
