package store

import (
	"context"
	"fmt"

	"github.com/orbo-dev/orbo/internal/models"
)

// IsSuperadmin implements access.SuperadminStore.
func (s *Store) IsSuperadmin(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Superadmin{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check superadmin: %w", err)
	}
	return count > 0, nil
}

// GrantSuperadmin marks a user as a platform operator. Granting twice is a no-op.
func (s *Store) GrantSuperadmin(ctx context.Context, userID string) error {
	ok, err := s.IsSuperadmin(ctx, userID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&models.Superadmin{UserID: userID}).Error; err != nil {
		return fmt.Errorf("failed to grant superadmin: %w", err)
	}
	s.logger.Info().Str("user_id", userID).Msg("Superadmin granted")
	return nil
}
