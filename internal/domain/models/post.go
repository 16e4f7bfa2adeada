package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post is a single publishable item. ScheduleID is nullable: posts may
// be generated by a schedule or created ad hoc and merely linked later.
type Post struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ScheduleID         *uuid.UUID     `gorm:"type:uuid;index" json:"schedule_id,omitempty"`
	UserID             uuid.UUID      `gorm:"type:uuid;index;not null" json:"user_id"`
	Platforms          StringArray    `gorm:"type:text[]" json:"platforms"`
	Content            string         `gorm:"type:text" json:"content"`
	ImageURL           *string        `gorm:"type:text" json:"image_url,omitempty"`
	Status             string         `gorm:"size:20;default:'draft';index" json:"status"`
	PublishedPlatforms StringArray    `gorm:"type:text[]" json:"published_platforms,omitempty"`
	ScheduledAt        *time.Time     `json:"scheduled_at,omitempty"`
	PublishedAt        *time.Time     `json:"published_at,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Post) TableName() string {
	return "posts"
}
