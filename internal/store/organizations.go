package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/orbo-dev/orbo/internal/access"
	"github.com/orbo-dev/orbo/internal/models"
)

// CreateOrganization inserts an organization and makes its creator the owner.
func (s *Store) CreateOrganization(ctx context.Context, name, ownerID string) (*models.Organization, error) {
	org := &models.Organization{Name: name, CreatedByID: ownerID}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(org).Error; err != nil {
			return fmt.Errorf("failed to create organization: %w", err)
		}
		owner := &models.Membership{OrgID: org.ID, UserID: ownerID, Role: access.RoleOwner}
		if err := tx.Create(owner).Error; err != nil {
			return fmt.Errorf("failed to create owner membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("org_id", org.ID).Str("owner_id", ownerID).Msg("Organization created")
	return org, nil
}

// FindOrganization loads one organization.
func (s *Store) FindOrganization(ctx context.Context, id string) (*models.Organization, error) {
	var org models.Organization
	if err := models.FindByID(s.db.WithContext(ctx), id, &org); err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}
	return &org, nil
}

// OrganizationSummary is an organization with its member count.
type OrganizationSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CreatedByID string    `json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
	MemberCount int64     `json:"member_count"`
}

// ListOrganizations returns every organization, newest first.
func (s *Store) ListOrganizations(ctx context.Context) ([]OrganizationSummary, error) {
	var summaries []OrganizationSummary
	err := s.db.WithContext(ctx).
		Model(&models.Organization{}).
		Select("organizations.id, organizations.name, organizations.created_by_id, organizations.created_at, (SELECT COUNT(*) FROM memberships WHERE memberships.org_id = organizations.id) AS member_count").
		Order("organizations.created_at DESC").
		Scan(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return summaries, nil
}
