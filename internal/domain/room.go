package domain

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// RoomType is the category a room was created for.
type RoomType string

const (
	RoomTypeInterview       RoomType = "interview"
	RoomTypePairProgramming RoomType = "pair-programming"
	RoomTypeTeamMeeting     RoomType = "team-meeting"
	RoomTypeStudyGroup      RoomType = "study-group"
	RoomTypeGeneral         RoomType = "general"
)

// RoomTypes lists every accepted room category.
var RoomTypes = []RoomType{
	RoomTypeInterview, RoomTypePairProgramming, RoomTypeTeamMeeting, RoomTypeStudyGroup, RoomTypeGeneral,
}

// Valid reports whether t is one of the known categories.
func (t RoomType) Valid() bool {
	for _, known := range RoomTypes {
		if t == known {
			return true
		}
	}
	return false
}

// RoomStatus is the lifecycle state of a room.
type RoomStatus string

const (
	RoomStatusActive   RoomStatus = "active"
	RoomStatusInactive RoomStatus = "inactive"
	RoomStatusArchived RoomStatus = "archived"
)

const (
	DefaultMaxParticipants = 5
	DefaultCodeLanguage    = "javascript"
)

// RoomConfig holds the per-room limits and feature toggles.
type RoomConfig struct {
	MaxParticipants             int  `gorm:"not null" json:"maxParticipants"`
	RecordingEnabled            bool `gorm:"not null" json:"recordingEnabled"`
	ChatEnabled                 bool `gorm:"not null" json:"chatEnabled"`
	ScreenShareEnabled          bool `gorm:"not null" json:"screenShareEnabled"`
	CodeEditorEnabled           bool `gorm:"not null" json:"codeEditorEnabled"`
	WhiteboardEnabled           bool `gorm:"not null" json:"whiteboardEnabled"`
	AllowMembershipChangeOnJoin bool `gorm:"not null" json:"allowMembershipChangeOnJoin"`
}

// DefaultRoomConfig returns the configuration a new room starts with.
func DefaultRoomConfig() RoomConfig {
	return RoomConfig{
		MaxParticipants:    DefaultMaxParticipants,
		RecordingEnabled:   true,
		ChatEnabled:        true,
		ScreenShareEnabled: true,
		CodeEditorEnabled:  true,
	}
}

// RoomConfigPatch is a partial RoomConfig; nil fields are left unchanged.
type RoomConfigPatch struct {
	MaxParticipants             *int  `json:"maxParticipants" validate:"omitempty,min=2,max=50"`
	RecordingEnabled            *bool `json:"recordingEnabled"`
	ChatEnabled                 *bool `json:"chatEnabled"`
	ScreenShareEnabled          *bool `json:"screenShareEnabled"`
	CodeEditorEnabled           *bool `json:"codeEditorEnabled"`
	WhiteboardEnabled           *bool `json:"whiteboardEnabled"`
	AllowMembershipChangeOnJoin *bool `json:"allowMembershipChangeOnJoin"`
}

// Apply merges the patch into c.
func (p RoomConfigPatch) Apply(c *RoomConfig) {
	if p.MaxParticipants != nil {
		c.MaxParticipants = *p.MaxParticipants
	}
	setBool(&c.RecordingEnabled, p.RecordingEnabled)
	setBool(&c.ChatEnabled, p.ChatEnabled)
	setBool(&c.ScreenShareEnabled, p.ScreenShareEnabled)
	setBool(&c.CodeEditorEnabled, p.CodeEditorEnabled)
	setBool(&c.WhiteboardEnabled, p.WhiteboardEnabled)
	setBool(&c.AllowMembershipChangeOnJoin, p.AllowMembershipChangeOnJoin)
}

// SharedCode is the single code buffer of a room. Writes are last-write-wins.
type SharedCode struct {
	Language     string     `gorm:"size:32;not null" json:"language"`
	Code         string     `gorm:"type:text" json:"code"`
	LastEditedBy *uint      `json:"lastEditedBy,omitempty"`
	LastEditedAt *time.Time `json:"lastEditedAt,omitempty"`
}

// Recording tracks whether a session recording is in progress and where the result lives.
type Recording struct {
	Active    bool       `gorm:"not null" json:"isRecording"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
	URL       *string    `gorm:"size:512" json:"recordingUrl,omitempty"`
}

// Room is an interview or collaboration room: its roster plus exactly one shared code buffer.
type Room struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"size:191;not null" json:"name"`
	Description  string         `gorm:"type:text" json:"description"`
	CreatorID    uint           `gorm:"index:idx_rooms_creator_created;not null" json:"creatorId"`
	RoomType     RoomType       `gorm:"type:varchar(32);index;not null" json:"roomType"`
	IsPublic     bool           `gorm:"index;not null" json:"isPublic"`
	PasswordHash *string        `gorm:"size:100" json:"-"`
	Tags         datatypes.JSON `json:"tags"`
	Status       RoomStatus     `gorm:"type:varchar(16);index;not null" json:"status"`
	Config       RoomConfig     `gorm:"embedded;embeddedPrefix:config_" json:"roomConfig"`
	SharedCode   SharedCode     `gorm:"embedded;embeddedPrefix:shared_" json:"sharedCode"`
	Recording    Recording      `gorm:"embedded;embeddedPrefix:recording_" json:"recording"`
	ExpiresAt    *time.Time     `gorm:"index" json:"expiresAt,omitempty"`
	Participants []Participant  `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE" json:"participants"`
	CreatedAt    time.Time      `gorm:"index:idx_rooms_creator_created" json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// MarshalJSON adds the derived fields clients expect next to the stored ones.
func (r Room) MarshalJSON() ([]byte, error) {
	type roomAlias Room
	return json.Marshal(struct {
		roomAlias
		IsLocked         bool `json:"isLocked"`
		ParticipantCount int  `json:"participantCount"`
	}{roomAlias(r), r.IsLocked(), len(r.Participants)})
}

// TagList decodes the stored tags. Malformed data yields nil.
func (r *Room) TagList() []string {
	if len(r.Tags) == 0 {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(r.Tags, &tags); err != nil {
		return nil
	}
	return tags
}

// SetTags replaces the tag list.
func (r *Room) SetTags(tags []string) {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	r.Tags = datatypes.JSON(b)
}

func (r *Room) IsActive() bool { return r.Status == RoomStatusActive }

// IsLocked reports whether joining requires the access password.
func (r *Room) IsLocked() bool { return r.PasswordHash != nil && *r.PasswordHash != "" }

// IsCreator compares against the creator reference, independent of participant roles.
func (r *Room) IsCreator(userID uint) bool { return r.CreatorID == userID }

func (r *Room) capacity() int {
	if r.Config.MaxParticipants <= 0 {
		return DefaultMaxParticipants
	}
	return r.Config.MaxParticipants
}

// IsFull reports whether the roster has reached the configured capacity.
func (r *Room) IsFull() bool { return len(r.Participants) >= r.capacity() }

// Participant returns the roster entry for userID, or nil.
// The pointer aliases the roster slice, so mutations through it are visible on the room.
func (r *Room) Participant(userID uint) *Participant {
	for i := range r.Participants {
		if r.Participants[i].UserID == userID {
			return &r.Participants[i]
		}
	}
	return nil
}

func (r *Room) IsParticipant(userID uint) bool { return r.Participant(userID) != nil }

// CreatorAlone reports whether userID is the creator and nobody else is in the room.
func (r *Room) CreatorAlone(userID uint) bool {
	return r.IsCreator(userID) && len(r.Participants) == 1 && r.Participants[0].UserID == userID
}

// AddParticipant appends a participant with default permissions.
// It returns false, without changing the roster, if the user is already present or the room is full.
func (r *Room) AddParticipant(userID uint, role Role, joinedAt time.Time) (*Participant, bool) {
	if r.IsParticipant(userID) || r.IsFull() {
		return nil, false
	}
	r.Participants = append(r.Participants, Participant{
		RoomID:      r.ID,
		UserID:      userID,
		Role:        role,
		JoinedAt:    joinedAt,
		Permissions: DefaultPermissions(),
	})
	return &r.Participants[len(r.Participants)-1], true
}

// RemoveParticipant drops userID from the roster, keeping the join order of the rest.
func (r *Room) RemoveParticipant(userID uint) bool {
	for i := range r.Participants {
		if r.Participants[i].UserID == userID {
			r.Participants = append(r.Participants[:i], r.Participants[i+1:]...)
			return true
		}
	}
	return false
}

// SetParticipantRole changes the role of userID. False if not present.
func (r *Room) SetParticipantRole(userID uint, role Role) bool {
	p := r.Participant(userID)
	if p == nil {
		return false
	}
	p.Role = role
	return true
}

// SetParticipantPermissions merges patch into the permissions of userID. False if not present.
func (r *Room) SetParticipantPermissions(userID uint, patch PermissionPatch) bool {
	p := r.Participant(userID)
	if p == nil {
		return false
	}
	patch.Apply(&p.Permissions)
	return true
}

// UpdateSharedCode overwrites the buffer unconditionally.
func (r *Room) UpdateSharedCode(code, language string, editor uint, at time.Time) {
	r.SharedCode.Code = code
	if language != "" {
		r.SharedCode.Language = language
	}
	r.SharedCode.LastEditedBy = &editor
	r.SharedCode.LastEditedAt = &at
}

// Clone returns a deep copy so callers can mutate without affecting shared instances.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	if r.PasswordHash != nil {
		h := *r.PasswordHash
		c.PasswordHash = &h
	}
	if r.Tags != nil {
		c.Tags = append(datatypes.JSON(nil), r.Tags...)
	}
	if r.ExpiresAt != nil {
		t := *r.ExpiresAt
		c.ExpiresAt = &t
	}
	if r.SharedCode.LastEditedBy != nil {
		id := *r.SharedCode.LastEditedBy
		c.SharedCode.LastEditedBy = &id
	}
	if r.SharedCode.LastEditedAt != nil {
		t := *r.SharedCode.LastEditedAt
		c.SharedCode.LastEditedAt = &t
	}
	if r.Recording.StartedAt != nil {
		t := *r.Recording.StartedAt
		c.Recording.StartedAt = &t
	}
	if r.Recording.URL != nil {
		u := *r.Recording.URL
		c.Recording.URL = &u
	}
	if r.Participants != nil {
		c.Participants = make([]Participant, len(r.Participants))
		copy(c.Participants, r.Participants)
	}
	return &c
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
