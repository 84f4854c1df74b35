package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/arcollect/internal/collections"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSnapshotWarmup recomputes cached dashboard snapshots.
	TaskSnapshotWarmup = "collections:warmup"
)

// WarmupPayload scopes a warmup run. Empty fields mean every division and the
// latest report month.
type WarmupPayload struct {
	Month      string `json:"month,omitempty"`
	Division   string `json:"division,omitempty"`
	Invalidate bool   `json:"invalidate,omitempty"`
}

// Validate checks the payload month and division.
func (p WarmupPayload) Validate() error {
	if p.Month != "" {
		if _, err := collections.ParseMonth(p.Month); err != nil {
			return err
		}
	}
	if p.Division != "" {
		if _, err := collections.ParseDivision(p.Division); err != nil {
			return err
		}
	}
	return nil
}

// NewWarmupTask constructs an Asynq task.
func NewWarmupTask(payload WarmupPayload) (*asynq.Task, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSnapshotWarmup, data), nil
}
