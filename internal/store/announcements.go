package store

import (
	"context"
	"fmt"
	"time"

	"github.com/orbo-dev/orbo/internal/models"
)

// AnnouncementFilter narrows an organization's announcement listing
type AnnouncementFilter struct {
	Status string // all, upcoming, or a concrete status
	From   *time.Time
	To     *time.Time
}

// ListAnnouncements returns an organization's announcements ordered by schedule.
func (s *Store) ListAnnouncements(ctx context.Context, orgID string, f AnnouncementFilter) ([]models.Announcement, error) {
	query := s.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("scheduled_at ASC")

	switch f.Status {
	case "", "all":
	case "upcoming":
		query = query.Where("status IN ?", []string{models.AnnouncementScheduled, models.AnnouncementSending})
	default:
		query = query.Where("status = ?", f.Status)
	}
	if f.From != nil {
		query = query.Where("scheduled_at >= ?", f.From.UTC())
	}
	if f.To != nil {
		query = query.Where("scheduled_at <= ?", f.To.UTC())
	}

	var announcements []models.Announcement
	if err := query.Find(&announcements).Error; err != nil {
		return nil, fmt.Errorf("failed to list announcements: %w", err)
	}
	return announcements, nil
}

// FindAnnouncement loads an announcement belonging to orgID.
func (s *Store) FindAnnouncement(ctx context.Context, orgID, id string) (*models.Announcement, error) {
	var a models.Announcement
	err := s.db.WithContext(ctx).Where("id = ? AND org_id = ?", id, orgID).First(&a).Error
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find announcement: %w", err)
	}
	return &a, nil
}

// CreateAnnouncement inserts a scheduled announcement.
func (s *Store) CreateAnnouncement(ctx context.Context, a *models.Announcement) error {
	if a.Status == "" {
		a.Status = models.AnnouncementScheduled
	}
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("failed to create announcement: %w", err)
	}
	return nil
}

// UpdateAnnouncement applies column updates to an announcement of orgID.
func (s *Store) UpdateAnnouncement(ctx context.Context, orgID, id string, updates map[string]any) (*models.Announcement, error) {
	a, err := s.FindAnnouncement(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(a).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update announcement: %w", err)
		}
	}
	return s.FindAnnouncement(ctx, orgID, id)
}

// DeleteAnnouncement removes an announcement of orgID.
func (s *Store) DeleteAnnouncement(ctx context.Context, orgID, id string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND org_id = ?", id, orgID).Delete(&models.Announcement{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete announcement: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
