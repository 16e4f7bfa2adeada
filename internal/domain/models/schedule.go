package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Schedule is a user-configured recurrence definition that drives
// automatic post creation and publication.
//
// Days holds day-selectors: weekday names ("monday".."sunday"), "daily",
// "custom_date" (date-range mode) or "single_date" (one-shot mode).
// Times maps each day-selector to a list of "HH:MM" strings in the
// schedule's timezone.
type Schedule struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID         uuid.UUID      `gorm:"type:uuid;index;not null" json:"user_id"`
	Platforms      StringArray    `gorm:"type:text[]" json:"platforms"`
	Days           StringArray    `gorm:"type:text[]" json:"days"`
	Times          JSON           `gorm:"type:jsonb" json:"times,omitempty"`
	CustomDateFrom *time.Time     `gorm:"type:date" json:"custom_date_from,omitempty"`
	CustomDateTo   *time.Time     `gorm:"type:date" json:"custom_date_to,omitempty"`
	SingleDate     *time.Time     `gorm:"type:date" json:"single_date,omitempty"`
	Timezone       string         `gorm:"size:50" json:"timezone"`
	Content        string         `gorm:"type:text" json:"content"`
	ImageURL       *string        `gorm:"type:text" json:"image_url,omitempty"`
	Status         string         `gorm:"size:10;default:'1';index" json:"status"`
	IsPaused       bool           `gorm:"default:false;index" json:"is_paused"`
	LastRunAt      *time.Time     `gorm:"index" json:"last_run_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Schedule) TableName() string {
	return "schedules"
}

// IsEligible reports whether the schedule may be claimed or executed.
// Disabled or paused schedules are never eligible.
func (s *Schedule) IsEligible() bool {
	return s.Status == ScheduleStatusEnabled && !s.IsPaused
}
