package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/orbo-dev/orbo/internal/access"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// User represents a local user account
type User struct {
	BaseModel
	Email        string    `json:"email" gorm:"unique;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Name         string    `json:"name"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Organization is the tenant unit that scopes memberships and data
type Organization struct {
	BaseModel
	Name        string    `json:"name" gorm:"not null"`
	CreatedByID string    `json:"created_by_id" gorm:"type:varchar(26)"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Memberships []Membership `json:"-" gorm:"foreignKey:OrgID;constraint:OnDelete:CASCADE"`
}

// Membership binds a user to an organization with exactly one role.
// The composite unique index keeps at most one row per (user, organization).
type Membership struct {
	BaseModel
	OrgID     string      `json:"org_id" gorm:"type:varchar(26);not null;uniqueIndex:idx_membership_user_org,priority:2"`
	UserID    string      `json:"user_id" gorm:"type:varchar(26);not null;uniqueIndex:idx_membership_user_org,priority:1"`
	Role      access.Role `json:"role" gorm:"type:varchar(16);not null"`
	UpdatedAt time.Time   `json:"updated_at" gorm:"autoUpdateTime"`

	User         User         `json:"user,omitzero" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Organization Organization `json:"-" gorm:"foreignKey:OrgID"`
}

// Superadmin marks a platform operator
type Superadmin struct {
	BaseModel
	UserID string `json:"user_id" gorm:"type:varchar(26);unique;not null"`
}

// Announcement status values
const (
	AnnouncementScheduled = "scheduled"
	AnnouncementSending   = "sending"
	AnnouncementSent      = "sent"
	AnnouncementCancelled = "cancelled"
)

// Announcement is a scheduled message for an organization's groups
type Announcement struct {
	BaseModel
	OrgID       string    `json:"org_id" gorm:"type:varchar(26);not null;index"`
	Title       string    `json:"title" gorm:"not null"`
	Content     string    `json:"content" gorm:"type:text;not null"`
	ScheduledAt time.Time `json:"scheduled_at" gorm:"not null;index"`
	Status      string    `json:"status" gorm:"type:varchar(16);not null;default:scheduled"`
	CreatedByID string    `json:"created_by_id" gorm:"type:varchar(26)"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// AdminAction is an audit record of a privileged mutation
type AdminAction struct {
	BaseModel
	OrgID        string `json:"org_id" gorm:"type:varchar(26);index"`
	UserID       string `json:"user_id" gorm:"type:varchar(26);not null"`
	Action       string `json:"action" gorm:"not null"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	Metadata     string `json:"metadata" gorm:"type:text"` // JSON object
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	models := []interface{}{
		&User{}, &Organization{}, &Membership{}, &Superadmin{}, &Announcement{}, &AdminAction{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}
