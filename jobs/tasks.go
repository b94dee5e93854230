package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuthzDenial persists one access denial reported by an enforcement adapter.
	TaskAuthzDenial = "authz:denial"
	// TaskAuthzDenialPurge deletes denials older than the retention window.
	TaskAuthzDenialPurge = "authz:denials:purge"
)

// DenialPayload describes a single denied access check.
type DenialPayload struct {
	ID          string    `json:"id"`
	Adapter     string    `json:"adapter"`
	Outcome     string    `json:"outcome"`
	UserID      string    `json:"user_id,omitempty"`
	Role        string    `json:"role,omitempty"`
	SchoolID    string    `json:"school_id,omitempty"`
	Requirement string    `json:"requirement"`
	Resource    string    `json:"resource,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// DenialPurgePayload carries the retention window applied by the purge task.
type DenialPurgePayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewDenialTask constructs an Asynq task.
func NewDenialTask(payload DenialPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuthzDenial, data, asynq.MaxRetry(5)), nil
}

// NewDenialPurgeTask constructs the purge task for the given retention.
func NewDenialPurgeTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(DenialPurgePayload{RetentionHours: int(retention / time.Hour)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuthzDenialPurge, data), nil
}
