package models

import (
	"time"

	"github.com/google/uuid"
)

// SocialAccount holds a user's connected platform credential. The
// scheduling engine reads these; token acquisition and refresh belong
// to the OAuth flows outside this repo.
type SocialAccount struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID         uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	Platform       string     `gorm:"size:50;index;not null" json:"platform"`
	AccountName    string     `gorm:"size:100" json:"account_name"`
	AccessToken    string     `gorm:"type:text;not null" json:"-"`
	RefreshToken   string     `gorm:"type:text" json:"-"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
	AccountStatus  string     `gorm:"size:20;default:'active';index" json:"account_status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (SocialAccount) TableName() string {
	return "social_accounts"
}
