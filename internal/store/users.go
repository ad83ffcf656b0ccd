package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/orbo-dev/orbo/internal/access"
	"github.com/orbo-dev/orbo/internal/models"
)

// GetUserByID implements auth.UserLookup.
func (s *Store) GetUserByID(ctx context.Context, id string) (*access.User, error) {
	var user models.User
	if err := models.FindByID(s.db.WithContext(ctx), id, &user); err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &access.User{ID: user.ID, Email: user.Email}, nil
}

// FindUser loads the full user row.
func (s *Store) FindUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := models.FindByID(s.db.WithContext(ctx), id, &user); err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// FindUserByEmail looks a user up by case-insensitive email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// CreateUser inserts a user; the email must be unused.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("user %s: %w", user.Email, ErrConflict)
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
