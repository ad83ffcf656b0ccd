package store

import (
	"context"
	"fmt"
	"time"

	"github.com/orbo-dev/orbo/internal/models"
)

// RecordAdminAction inserts an audit row.
func (s *Store) RecordAdminAction(ctx context.Context, a *models.AdminAction) error {
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("failed to record admin action: %w", err)
	}
	return nil
}

// ListAdminActions returns the newest audit rows for an organization.
func (s *Store) ListAdminActions(ctx context.Context, orgID string, limit int) ([]models.AdminAction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var actions []models.AdminAction
	err := s.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at DESC").
		Limit(limit).
		Find(&actions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list admin actions: %w", err)
	}
	return actions, nil
}

// PruneAdminActions deletes audit rows created before cutoff.
func (s *Store) PruneAdminActions(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AdminAction{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune admin actions: %w", res.Error)
	}
	return res.RowsAffected, nil
}
