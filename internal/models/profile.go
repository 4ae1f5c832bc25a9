package models

import (
	"time"
)

// Profile is the public identity of an identity-provider user. ID equals the provider's user id.
type Profile struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	Username    string    `gorm:"uniqueIndex;size:64" json:"username"`
	DisplayName string    `gorm:"size:100" json:"display_name"`
	Bio         string    `gorm:"size:200" json:"bio"`
	AvatarURL   string    `json:"avatar_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Name prefers the display name, then the username.
func (p *Profile) Name() string {
	if p == nil {
		return ""
	}
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Username
}
