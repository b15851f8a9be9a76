package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser       = "user"
	RoleSuperAdmin = "superadmin"
)

const (
	ContentTypeBlog    = "blog"
	ContentTypeWebsite = "website"
)

type User struct {
	ID               string     `gorm:"type:uuid;primaryKey" json:"id"`
	Name             string     `gorm:"not null" json:"name"`
	Email            string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash     string     `gorm:"not null" json:"-"`
	Role             string     `gorm:"not null;default:user" json:"role"`
	Approved         bool       `gorm:"not null;default:false" json:"approved"`
	Blocked          bool       `gorm:"not null;default:false" json:"blocked"`
	ResetToken       *string    `gorm:"index" json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type ClientProfile struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Website     string    `gorm:"not null" json:"website"`
	Prompt      string    `json:"prompt"`
	CreatedByID *string   `gorm:"type:uuid" json:"created_by_id,omitempty"`
	CreatedBy   *User     `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedByID *string   `gorm:"type:uuid" json:"updated_by_id,omitempty"`
	UpdatedBy   *User     `gorm:"foreignKey:UpdatedByID" json:"updated_by,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (ClientProfile) TableName() string { return "client_profiles" }

func (c *ClientProfile) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Content is a generated-content record. Rows with a non-nil UsageMonth are
// monthly per-user usage aggregates (ClientID null, Title empty); a partial
// unique index on (user_id, usage_month) keeps them to one per month.
type Content struct {
	ID               string         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           string         `gorm:"type:uuid;not null;index" json:"user_id"`
	User             *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ClientID         *string        `gorm:"type:uuid" json:"client_id,omitempty"`
	Client           *ClientProfile `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Title            string         `json:"title"`
	Keywords         StringList     `gorm:"type:jsonb" json:"keywords"`
	Length           int            `json:"length"`
	Type             string         `gorm:"not null;default:blog" json:"type"`
	Headings         int            `json:"headings"`
	GeneratedContent string         `gorm:"type:text" json:"generated_content"`
	Generations      int            `gorm:"not null;default:1" json:"generations"`
	Regenerations    int            `gorm:"not null;default:0" json:"regenerations"`
	UsageMonth       *string        `gorm:"size:7" json:"usage_month,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

func (Content) TableName() string { return "contents" }

func (c *Content) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type AuditLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *string   `gorm:"type:uuid" json:"user_id,omitempty"`
	ClientID  *string   `gorm:"type:uuid" json:"client_id,omitempty"`
	Action    string    `gorm:"not null" json:"action"`
	Metadata  JSONB     `gorm:"type:jsonb;default:'{}'::jsonb" json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}
