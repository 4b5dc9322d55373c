package domain

import (
	"fmt"
	"time"
)

// Role is a participant's role inside one room.
type Role string

const (
	RoleCreator   Role = "creator"
	RolePresenter Role = "presenter"
	RoleViewer    Role = "viewer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCreator, RolePresenter, RoleViewer:
		return true
	}
	return false
}

// Permission keys as they appear on the wire.
const (
	PermCanEdit        = "canEdit"
	PermCanExecute     = "canExecute"
	PermCanScreenShare = "canScreenShare"
	PermCanChat        = "canChat"
	PermCanMute        = "canMute"
)

// PermissionKeys is the allow-list for permission patches.
var PermissionKeys = []string{PermCanEdit, PermCanExecute, PermCanScreenShare, PermCanChat, PermCanMute}

// Permissions are five independent capability flags.
type Permissions struct {
	CanEdit        bool `gorm:"not null" json:"canEdit"`
	CanExecute     bool `gorm:"not null" json:"canExecute"`
	CanScreenShare bool `gorm:"not null" json:"canScreenShare"`
	CanChat        bool `gorm:"not null" json:"canChat"`
	CanMute        bool `gorm:"not null" json:"canMute"`
}

// DefaultPermissions grants every capability.
func DefaultPermissions() Permissions {
	return Permissions{CanEdit: true, CanExecute: true, CanScreenShare: true, CanChat: true, CanMute: true}
}

// PermissionPatch is a partial Permissions value; nil fields stay untouched when applied.
type PermissionPatch struct {
	CanEdit        *bool
	CanExecute     *bool
	CanScreenShare *bool
	CanChat        *bool
	CanMute        *bool
}

// NewPermissionPatch converts a wire-format patch. Unknown keys are an error.
func NewPermissionPatch(m map[string]bool) (PermissionPatch, error) {
	var p PermissionPatch
	for key, value := range m {
		v := value
		switch key {
		case PermCanEdit:
			p.CanEdit = &v
		case PermCanExecute:
			p.CanExecute = &v
		case PermCanScreenShare:
			p.CanScreenShare = &v
		case PermCanChat:
			p.CanChat = &v
		case PermCanMute:
			p.CanMute = &v
		default:
			return PermissionPatch{}, fmt.Errorf("unknown permission key %q", key)
		}
	}
	return p, nil
}

// Apply merges the patch into perms.
func (p PermissionPatch) Apply(perms *Permissions) {
	setBool(&perms.CanEdit, p.CanEdit)
	setBool(&perms.CanExecute, p.CanExecute)
	setBool(&perms.CanScreenShare, p.CanScreenShare)
	setBool(&perms.CanChat, p.CanChat)
	setBool(&perms.CanMute, p.CanMute)
}

// Participant is one user's membership in one room.
type Participant struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	RoomID          uint        `gorm:"not null;uniqueIndex:idx_participants_room_user" json:"roomId"`
	UserID          uint        `gorm:"not null;uniqueIndex:idx_participants_room_user;index" json:"userId"`
	Role            Role        `gorm:"type:varchar(16);not null" json:"role"`
	JoinedAt        time.Time   `gorm:"not null" json:"joinedAt"`
	Permissions     Permissions `gorm:"embedded;embeddedPrefix:perm_" json:"permissions"`
	IsMuted         bool        `gorm:"not null" json:"isMuted"`
	IsCameraOff     bool        `gorm:"not null" json:"isCameraOff"`
	IsScreenSharing bool        `gorm:"not null" json:"isScreenSharing"`
}

// MediaPatch updates the media flags of a participant; nil fields are left unchanged.
type MediaPatch struct {
	IsMuted         *bool `json:"isMuted"`
	IsCameraOff     *bool `json:"isCameraOff"`
	IsScreenSharing *bool `json:"isScreenSharing"`
}

// Empty reports whether the patch changes nothing.
func (m MediaPatch) Empty() bool {
	return m.IsMuted == nil && m.IsCameraOff == nil && m.IsScreenSharing == nil
}

func (m MediaPatch) Apply(p *Participant) {
	setBool(&p.IsMuted, m.IsMuted)
	setBool(&p.IsCameraOff, m.IsCameraOff)
	setBool(&p.IsScreenSharing, m.IsScreenSharing)
}
