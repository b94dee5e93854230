package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/ecoly/ecoly/internal/rbac"
	"github.com/ecoly/ecoly/jobs"
)

const enqueueTimeout = 500 * time.Millisecond

// Enqueuer submits tasks; *jobs.Client and *asynq.Client satisfy it.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Observer forwards route and API guard denials to the worker queue. UI
// gate decisions and allowed checks are ignored.
type Observer struct {
	enqueuer Enqueuer
	logger   *slog.Logger
}

// NewObserver constructs an Observer.
func NewObserver(enqueuer Enqueuer, logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{enqueuer: enqueuer, logger: logger}
}

// ObserveDecision implements rbac.Observer.
func (o *Observer) ObserveDecision(ctx context.Context, d rbac.Decision) {
	if o == nil || o.enqueuer == nil || d.Allowed() {
		return
	}
	if d.Adapter != rbac.AdapterRoute && d.Adapter != rbac.AdapterAPI {
		return
	}
	task, err := jobs.NewDenialTask(PayloadFromDecision(d))
	if err != nil {
		o.logger.Warn("build denial task", slog.Any("error", err))
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), enqueueTimeout)
	defer cancel()
	if _, err := o.enqueuer.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault)); err != nil {
		o.logger.Warn("enqueue denial",
			slog.String("adapter", d.Adapter),
			slog.String("outcome", string(d.Outcome)),
			slog.Any("error", err),
		)
	}
}

// PayloadFromDecision maps a decision to its queued form.
func PayloadFromDecision(d rbac.Decision) jobs.DenialPayload {
	p := jobs.DenialPayload{
		ID:          uuid.NewString(),
		Adapter:     d.Adapter,
		Outcome:     string(d.Outcome),
		Requirement: d.Requirement.String(),
		Resource:    d.Resource,
		OccurredAt:  d.At.UTC(),
	}
	if d.Principal != nil {
		p.UserID = d.Principal.ID
		p.Role = string(d.Principal.Role)
		p.SchoolID = d.Principal.TenantID
	}
	return p
}
