package domain

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type RoomPreferences struct {
	DefaultLayout       string `gorm:"type:varchar(16);not null" json:"defaultLayout"`
	AutoStartCamera     bool   `gorm:"not null" json:"autoStartCamera"`
	AutoStartMicrophone bool   `gorm:"not null" json:"autoStartMicrophone"`
	DefaultVolume       int    `gorm:"not null" json:"defaultVolume"`
}

type CodePreferences struct {
	DefaultLanguage string `gorm:"size:32;not null" json:"defaultLanguage"`
	FontSize        int    `gorm:"not null" json:"fontSize"`
	Theme           string `gorm:"type:varchar(16);not null" json:"theme"`
	IndentSize      int    `gorm:"not null" json:"indentSize"`
}

type NotificationPreferences struct {
	EmailNotifications    bool `gorm:"not null" json:"emailNotifications"`
	SoundNotifications    bool `gorm:"not null" json:"soundNotifications"`
	DesktopNotifications  bool `gorm:"not null" json:"desktopNotifications"`
	NotifyOnUserJoin      bool `gorm:"not null" json:"notifyOnUserJoin"`
	NotifyOnCodeExecution bool `gorm:"not null" json:"notifyOnCodeExecution"`
}

type PrivacySettings struct {
	AllowScreenRecording bool `gorm:"not null" json:"allowScreenRecording"`
	AllowAnalytics       bool `gorm:"not null" json:"allowAnalytics"`
	ShowOnlineStatus     bool `gorm:"not null" json:"showOnlineStatus"`
}

// UserPreferences is one user's client settings plus their favourite rooms and
// blocked users. Each user has at most one row.
type UserPreferences struct {
	ID             uint                    `gorm:"primaryKey" json:"id"`
	UserID         uint                    `gorm:"not null;uniqueIndex:idx_preferences_user" json:"userId"`
	Room           RoomPreferences         `gorm:"embedded;embeddedPrefix:room_" json:"roomPreferences"`
	Code           CodePreferences         `gorm:"embedded;embeddedPrefix:code_" json:"codePreferences"`
	Notifications  NotificationPreferences `gorm:"embedded;embeddedPrefix:notify_" json:"notificationPreferences"`
	Privacy        PrivacySettings         `gorm:"embedded;embeddedPrefix:privacy_" json:"privacySettings"`
	FavoritedRooms datatypes.JSON          `json:"favoritedRooms"`
	BlockedUsers   datatypes.JSON          `json:"blockedUsers"`
	CreatedAt      time.Time               `json:"createdAt"`
	UpdatedAt      time.Time               `json:"updatedAt"`
}

// DefaultUserPreferences returns the settings a user has before saving any.
func DefaultUserPreferences(userID uint) *UserPreferences {
	p := &UserPreferences{
		UserID: userID,
		Room: RoomPreferences{
			DefaultLayout:   "grid",
			AutoStartCamera: true,
			DefaultVolume:   50,
		},
		Code: CodePreferences{
			DefaultLanguage: "javascript",
			FontSize:        14,
			Theme:           "dark",
			IndentSize:      2,
		},
		Notifications: NotificationPreferences{
			EmailNotifications:   true,
			SoundNotifications:   true,
			DesktopNotifications: true,
			NotifyOnUserJoin:     true,
		},
		Privacy: PrivacySettings{
			AllowScreenRecording: true,
			AllowAnalytics:       true,
			ShowOnlineStatus:     true,
		},
	}
	p.FavoritedRooms = encodeIDs(nil)
	p.BlockedUsers = encodeIDs(nil)
	return p
}

func (p *UserPreferences) FavoriteRoomIDs() []uint { return decodeIDs(p.FavoritedRooms) }

func (p *UserPreferences) BlockedUserIDs() []uint { return decodeIDs(p.BlockedUsers) }

// AddFavorite appends roomID unless it is already a favourite.
func (p *UserPreferences) AddFavorite(roomID uint) bool {
	ids, ok := addID(p.FavoriteRoomIDs(), roomID)
	p.FavoritedRooms = encodeIDs(ids)
	return ok
}

func (p *UserPreferences) RemoveFavorite(roomID uint) bool {
	ids, ok := removeID(p.FavoriteRoomIDs(), roomID)
	p.FavoritedRooms = encodeIDs(ids)
	return ok
}

func (p *UserPreferences) Block(userID uint) bool {
	ids, ok := addID(p.BlockedUserIDs(), userID)
	p.BlockedUsers = encodeIDs(ids)
	return ok
}

func (p *UserPreferences) Unblock(userID uint) bool {
	ids, ok := removeID(p.BlockedUserIDs(), userID)
	p.BlockedUsers = encodeIDs(ids)
	return ok
}

func (p *UserPreferences) HasBlocked(userID uint) bool {
	for _, id := range p.BlockedUserIDs() {
		if id == userID {
			return true
		}
	}
	return false
}

// PreferencesPatch updates any of the four settings groups. Within a group, nil
// fields are left unchanged.
type PreferencesPatch struct {
	Room          *RoomPreferencesPatch         `json:"roomPreferences"`
	Code          *CodePreferencesPatch         `json:"codePreferences"`
	Notifications *NotificationPreferencesPatch `json:"notificationPreferences"`
	Privacy       *PrivacySettingsPatch         `json:"privacySettings"`
}

type RoomPreferencesPatch struct {
	DefaultLayout       *string `json:"defaultLayout" validate:"omitempty,oneof=grid focus sidebar"`
	AutoStartCamera     *bool   `json:"autoStartCamera"`
	AutoStartMicrophone *bool   `json:"autoStartMicrophone"`
	DefaultVolume       *int    `json:"defaultVolume" validate:"omitempty,min=0,max=100"`
}

type CodePreferencesPatch struct {
	DefaultLanguage *string `json:"defaultLanguage" validate:"omitempty,notblank,max=32"`
	FontSize        *int    `json:"fontSize" validate:"omitempty,min=10,max=32"`
	Theme           *string `json:"theme" validate:"omitempty,oneof=light dark monokai dracula"`
	IndentSize      *int    `json:"indentSize" validate:"omitempty,min=1,max=16"`
}

type NotificationPreferencesPatch struct {
	EmailNotifications    *bool `json:"emailNotifications"`
	SoundNotifications    *bool `json:"soundNotifications"`
	DesktopNotifications  *bool `json:"desktopNotifications"`
	NotifyOnUserJoin      *bool `json:"notifyOnUserJoin"`
	NotifyOnCodeExecution *bool `json:"notifyOnCodeExecution"`
}

type PrivacySettingsPatch struct {
	AllowScreenRecording *bool `json:"allowScreenRecording"`
	AllowAnalytics       *bool `json:"allowAnalytics"`
	ShowOnlineStatus     *bool `json:"showOnlineStatus"`
}

// Apply merges the patch into p.
func (pp PreferencesPatch) Apply(p *UserPreferences) {
	if r := pp.Room; r != nil {
		setString(&p.Room.DefaultLayout, r.DefaultLayout)
		setBool(&p.Room.AutoStartCamera, r.AutoStartCamera)
		setBool(&p.Room.AutoStartMicrophone, r.AutoStartMicrophone)
		setInt(&p.Room.DefaultVolume, r.DefaultVolume)
	}
	if c := pp.Code; c != nil {
		setString(&p.Code.DefaultLanguage, c.DefaultLanguage)
		setInt(&p.Code.FontSize, c.FontSize)
		setString(&p.Code.Theme, c.Theme)
		setInt(&p.Code.IndentSize, c.IndentSize)
	}
	if n := pp.Notifications; n != nil {
		setBool(&p.Notifications.EmailNotifications, n.EmailNotifications)
		setBool(&p.Notifications.SoundNotifications, n.SoundNotifications)
		setBool(&p.Notifications.DesktopNotifications, n.DesktopNotifications)
		setBool(&p.Notifications.NotifyOnUserJoin, n.NotifyOnUserJoin)
		setBool(&p.Notifications.NotifyOnCodeExecution, n.NotifyOnCodeExecution)
	}
	if s := pp.Privacy; s != nil {
		setBool(&p.Privacy.AllowScreenRecording, s.AllowScreenRecording)
		setBool(&p.Privacy.AllowAnalytics, s.AllowAnalytics)
		setBool(&p.Privacy.ShowOnlineStatus, s.ShowOnlineStatus)
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func decodeIDs(raw datatypes.JSON) []uint {
	if len(raw) == 0 {
		return nil
	}
	var ids []uint
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil
	}
	return ids
}

func encodeIDs(ids []uint) datatypes.JSON {
	if ids == nil {
		ids = []uint{}
	}
	b, _ := json.Marshal(ids)
	return datatypes.JSON(b)
}

func addID(ids []uint, id uint) ([]uint, bool) {
	for _, existing := range ids {
		if existing == id {
			return ids, false
		}
	}
	return append(ids, id), true
}

func removeID(ids []uint, id uint) ([]uint, bool) {
	for i, existing := range ids {
		if existing == id {
			return append(ids[:i], ids[i+1:]...), true
		}
	}
	return ids, false
}
