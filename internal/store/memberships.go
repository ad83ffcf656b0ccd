package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"gorm.io/gorm"

	"github.com/orbo-dev/orbo/internal/access"
	"github.com/orbo-dev/orbo/internal/models"
)

// GetMembership implements access.MembershipStore: a point read on (user, org).
func (s *Store) GetMembership(ctx context.Context, userID, orgID string) (*access.Membership, error) {
	var m models.Membership
	err := s.db.WithContext(ctx).
		Select("role").
		Where("user_id = ? AND org_id = ?", userID, orgID).
		First(&m).Error
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find membership: %w", err)
	}
	return &access.Membership{Role: m.Role}, nil
}

// ListMembers returns an organization's memberships with their users, owners first.
func (s *Store) ListMembers(ctx context.Context, orgID string) ([]models.Membership, error) {
	var members []models.Membership
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("org_id = ?", orgID).
		Order("created_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	sortByRoleDesc(members)
	return members, nil
}

// ListUserMemberships returns every membership of a user with its organization.
func (s *Store) ListUserMemberships(ctx context.Context, userID string) ([]models.Membership, error) {
	var memberships []models.Membership
	err := s.db.WithContext(ctx).
		Preload("Organization").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&memberships).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	return memberships, nil
}

// AddMember creates a membership row. A second row for the same pair is a conflict.
func (s *Store) AddMember(ctx context.Context, orgID, userID string, role access.Role) (*models.Membership, error) {
	m := &models.Membership{OrgID: orgID, UserID: userID, Role: role}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Membership{}).
			Where("user_id = ? AND org_id = ?", userID, orgID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count memberships: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("membership for user %s: %w", userID, ErrConflict)
		}
		return tx.Create(m).Error
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateMemberRole changes a member's role, refusing to demote the last owner.
func (s *Store) UpdateMemberRole(ctx context.Context, orgID, userID string, role access.Role) (*models.Membership, error) {
	var m models.Membership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND org_id = ?", userID, orgID).First(&m).Error; err != nil {
			if notFound(err) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to find membership: %w", err)
		}

		if m.Role == access.RoleOwner && role != access.RoleOwner {
			if err := ensureAnotherOwner(tx, orgID); err != nil {
				return err
			}
		}

		m.Role = role
		return tx.Model(&m).Update("role", role).Error
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// RemoveMember deletes a membership, refusing to remove the last owner.
func (s *Store) RemoveMember(ctx context.Context, orgID, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.Membership
		if err := tx.Where("user_id = ? AND org_id = ?", userID, orgID).First(&m).Error; err != nil {
			if notFound(err) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to find membership: %w", err)
		}

		if m.Role == access.RoleOwner {
			if err := ensureAnotherOwner(tx, orgID); err != nil {
				return err
			}
		}

		return tx.Delete(&m).Error
	})
}

func ensureAnotherOwner(tx *gorm.DB, orgID string) error {
	var owners int64
	if err := tx.Model(&models.Membership{}).
		Where("org_id = ? AND role = ?", orgID, access.RoleOwner).
		Count(&owners).Error; err != nil {
		return fmt.Errorf("failed to count owners: %w", err)
	}
	if owners <= 1 {
		return ErrLastOwner
	}
	return nil
}

func sortByRoleDesc(members []models.Membership) {
	slices.SortStableFunc(members, func(a, b models.Membership) int {
		return cmp.Compare(b.Role, a.Role)
	})
}
