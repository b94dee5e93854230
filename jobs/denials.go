package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// DenialStore persists and expires recorded denials.
type DenialStore interface {
	RecordDenial(ctx context.Context, payload DenialPayload) error
	PurgeDenials(ctx context.Context, before time.Time) (int64, error)
}

// JobObserver counts job executions.
type JobObserver interface {
	ObserveJob(task string, err error)
}

// DenialJob handles the denial audit tasks.
type DenialJob struct {
	Store   DenialStore
	Logger  *slog.Logger
	Metrics JobObserver
	clock   func() time.Time
}

// NewDenialJob initialises the denial handlers.
func NewDenialJob(store DenialStore, logger *slog.Logger, metrics JobObserver) *DenialJob {
	return &DenialJob{
		Store:   store,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// HandleRecord processes TaskAuthzDenial tasks.
func (j *DenialJob) HandleRecord(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("denial record: handler not configured")
	}
	defer func() { j.observe(TaskAuthzDenial, err) }()

	var payload DenialPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return errors.Join(err, asynq.SkipRetry)
	}
	if payload.Adapter == "" || payload.Outcome == "" {
		return errors.Join(errors.New("denial record: incomplete payload"), asynq.SkipRetry)
	}
	if payload.OccurredAt.IsZero() {
		payload.OccurredAt = j.now()
	}
	if err := j.Store.RecordDenial(ctx, payload); err != nil {
		j.logger().Error("persist denial",
			slog.String("adapter", payload.Adapter),
			slog.String("outcome", payload.Outcome),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}

// HandlePurge processes TaskAuthzDenialPurge tasks.
func (j *DenialJob) HandlePurge(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("denial purge: handler not configured")
	}
	defer func() { j.observe(TaskAuthzDenialPurge, err) }()

	var payload DenialPurgePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return errors.Join(err, asynq.SkipRetry)
	}
	if payload.RetentionHours <= 0 {
		return errors.Join(errors.New("denial purge: retention must be positive"), asynq.SkipRetry)
	}
	cutoff := j.now().Add(-time.Duration(payload.RetentionHours) * time.Hour)
	removed, err := j.Store.PurgeDenials(ctx, cutoff)
	if err != nil {
		j.logger().Error("purge denials", slog.Time("before", cutoff), slog.Any("error", err))
		return err
	}
	j.logger().Info("purged denials", slog.Time("before", cutoff), slog.Int64("removed", removed))
	return nil
}

func (j *DenialJob) observe(task string, err error) {
	if j.Metrics != nil {
		j.Metrics.ObserveJob(task, err)
	}
}

func (j *DenialJob) now() time.Time {
	if j.clock == nil {
		return time.Now().UTC()
	}
	return j.clock()
}

func (j *DenialJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}
