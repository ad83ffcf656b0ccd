package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/orbo-dev/orbo/internal/tasks"
)

// standard 5-field format: minute hour day-of-month month day-of-week
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// StartRetentionScheduler enqueues an audit:prune task on every tick of
// schedule. The returned cron must be stopped on shutdown.
func StartRetentionScheduler(client tasks.Enqueuer, schedule string, logger zerolog.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithParser(scheduleParser))

	if _, err := c.AddFunc(schedule, func() {
		enqueuePrune(client, logger)
	}); err != nil {
		return nil, fmt.Errorf("invalid audit prune schedule %q: %w", schedule, err)
	}

	c.Start()

	if next := nextRun(schedule, time.Now()); next != nil {
		logger.Info().
			Str("schedule", schedule).
			Time("next_run_at", *next).
			Msg("Audit retention scheduler started")
	}
	return c, nil
}

func enqueuePrune(client tasks.Enqueuer, logger zerolog.Logger) {
	// One prune per hour at most, even if the schedule fires more often
	_, err := client.EnqueueContext(context.Background(), tasks.NewPruneAuditLogTask(),
		asynq.Unique(time.Hour),
		asynq.Queue("low"),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		logger.Debug().Msg("Audit prune already pending")
		return
	}
	if err != nil {
		logger.Error().Err(err).Msg("Failed to enqueue audit prune task")
		return
	}
	logger.Debug().Msg("Audit prune task enqueued")
}

// nextRun calculates the next run time from a cron schedule
func nextRun(cronExpr string, from time.Time) *time.Time {
	if cronExpr == "" {
		return nil
	}

	schedule, err := scheduleParser.Parse(cronExpr)
	if err != nil {
		return nil
	}

	next := schedule.Next(from)
	return &next
}
