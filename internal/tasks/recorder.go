package tasks

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// Enqueuer is the subset of *asynq.Client used to schedule work.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueRecorder records admin actions by enqueueing them for the worker.
type QueueRecorder struct {
	client Enqueuer
	logger zerolog.Logger
}

// NewQueueRecorder creates an asynq-backed audit recorder
func NewQueueRecorder(client Enqueuer, logger zerolog.Logger) *QueueRecorder {
	return &QueueRecorder{
		client: client,
		logger: logger.With().Str("component", "audit_recorder").Logger(),
	}
}

// RecordAdminAction enqueues an audit task. Failures are logged and swallowed:
// the mutation it describes has already committed.
func (r *QueueRecorder) RecordAdminAction(ctx context.Context, p AdminActionPayload) {
	task, err := NewAdminActionTask(p)
	if err != nil {
		r.logger.Error().Err(err).Str("action", p.Action).Msg("Failed to create audit task")
		return
	}

	info, err := r.client.EnqueueContext(ctx, task, asynq.MaxRetry(5), asynq.Timeout(30*time.Second))
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("org_id", p.OrgID).
			Str("action", p.Action).
			Msg("Failed to enqueue audit task")
		return
	}

	r.logger.Debug().
		Str("task_id", info.ID).
		Str("org_id", p.OrgID).
		Str("action", p.Action).
		Msg("Audit task enqueued")
}
