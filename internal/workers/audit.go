package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/orbo-dev/orbo/internal/models"
	"github.com/orbo-dev/orbo/internal/tasks"
)

// AuditStore persists and prunes audit rows
type AuditStore interface {
	RecordAdminAction(ctx context.Context, a *models.AdminAction) error
	PruneAdminActions(ctx context.Context, cutoff time.Time) (int64, error)
}

// HandleAdminAction writes one audit row from an audit:admin_action task
func HandleAdminAction(ctx context.Context, t *asynq.Task, store AuditStore, logger zerolog.Logger) error {
	payload, err := tasks.ParseAdminActionPayload(t)
	if err != nil {
		// Malformed payloads never succeed on retry
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	action := &models.AdminAction{
		OrgID:        payload.OrgID,
		UserID:       payload.UserID,
		Action:       payload.Action,
		ResourceType: payload.ResourceType,
		ResourceID:   payload.ResourceID,
	}
	if len(payload.Metadata) > 0 {
		meta, err := json.Marshal(payload.Metadata)
		if err != nil {
			return fmt.Errorf("%w: failed to marshal metadata: %v", asynq.SkipRetry, err)
		}
		action.Metadata = string(meta)
	}

	if err := store.RecordAdminAction(ctx, action); err != nil {
		logger.Error().
			Err(err).
			Str("org_id", payload.OrgID).
			Str("action", payload.Action).
			Msg("Failed to record admin action")
		return err
	}

	logger.Info().
		Str("org_id", payload.OrgID).
		Str("user_id", payload.UserID).
		Str("action", payload.Action).
		Msg("Admin action recorded")
	return nil
}

// HandlePruneAuditLog deletes audit rows older than retention
func HandlePruneAuditLog(ctx context.Context, _ *asynq.Task, store AuditStore, retention time.Duration, logger zerolog.Logger) error {
	cutoff := time.Now().Add(-retention)
	deleted, err := store.PruneAdminActions(ctx, cutoff)
	if err != nil {
		logger.Error().Err(err).Time("cutoff", cutoff).Msg("Failed to prune audit log")
		return err
	}

	logger.Info().
		Int64("deleted", deleted).
		Time("cutoff", cutoff).
		Msg("Audit log pruned")
	return nil
}
