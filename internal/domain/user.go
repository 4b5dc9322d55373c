// Package domain holds the persistent entities of the interview platform and the
// pure rules that operate on them.
package domain

import (
	"strconv"
	"time"
)

// User is a locally provisioned account mirroring an identity-provider subject.
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ExternalID string    `gorm:"type:varchar(191);uniqueIndex:idx_users_external_id;not null" json:"externalId"`
	Name       string    `gorm:"size:191" json:"name"`
	Email      string    `gorm:"type:varchar(191);index" json:"email"`
	AvatarURL  string    `gorm:"size:512" json:"avatarUrl"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// ProviderID is the id used for this user at the video/chat provider.
func (u *User) ProviderID() string {
	if u.ExternalID != "" {
		return u.ExternalID
	}
	return "user-" + strconv.FormatUint(uint64(u.ID), 10)
}

// DisplayName falls back to the email when no name is known.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
