package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	// Audit log tasks
	TypeAdminAction   = "audit:admin_action"
	TypePruneAuditLog = "audit:prune"
)

// AdminActionPayload describes one privileged mutation
type AdminActionPayload struct {
	OrgID        string         `json:"org_id"`
	UserID       string         `json:"user_id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type,omitempty"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// NewAdminActionTask creates a task that persists an audit row
func NewAdminActionTask(p AdminActionPayload) (*asynq.Task, error) {
	if p.UserID == "" || p.Action == "" {
		return nil, fmt.Errorf("admin action requires user and action")
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeAdminAction, payload), nil
}

// NewPruneAuditLogTask creates a task that deletes expired audit rows
func NewPruneAuditLogTask() *asynq.Task {
	return asynq.NewTask(TypePruneAuditLog, nil)
}

// ParseAdminActionPayload parses the payload of an admin action task
func ParseAdminActionPayload(task *asynq.Task) (AdminActionPayload, error) {
	var payload AdminActionPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}
