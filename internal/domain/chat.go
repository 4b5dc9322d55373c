package domain

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeCode   MessageType = "code"
	MessageTypeSystem MessageType = "system"
)

// ChatMessage is one persisted room chat message.
type ChatMessage struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	RoomID         uint           `gorm:"not null;index:idx_chat_room_created" json:"roomId"`
	SenderID       uint           `gorm:"not null;index" json:"senderId"`
	SenderName     string         `gorm:"size:191" json:"senderName"`
	SenderAvatar   string         `gorm:"size:512" json:"senderAvatar,omitempty"`
	Message        string         `gorm:"type:text;not null" json:"message"`
	MessageType    MessageType    `gorm:"type:varchar(16);not null" json:"messageType"`
	CodeLanguage   *string        `gorm:"size:32" json:"codeLanguage,omitempty"`
	IsEdited       bool           `gorm:"not null" json:"isEdited"`
	EditedAt       *time.Time     `json:"editedAt,omitempty"`
	MentionedUsers datatypes.JSON `json:"mentionedUsers"`
	Reactions      []Reaction     `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"reactions"`
	CreatedAt      time.Time      `gorm:"index:idx_chat_room_created" json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// Mentions decodes the mentioned user ids.
func (m *ChatMessage) Mentions() []uint {
	if len(m.MentionedUsers) == 0 {
		return nil
	}
	var ids []uint
	if err := json.Unmarshal(m.MentionedUsers, &ids); err != nil {
		return nil
	}
	return ids
}

func (m *ChatMessage) SetMentions(ids []uint) {
	if ids == nil {
		ids = []uint{}
	}
	b, _ := json.Marshal(ids)
	m.MentionedUsers = datatypes.JSON(b)
}

// Reaction is one user's emoji on one message. A user can add each emoji once.
type Reaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MessageID uint      `gorm:"not null;uniqueIndex:idx_reactions_message_user_emoji" json:"messageId"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_reactions_message_user_emoji" json:"userId"`
	UserName  string    `gorm:"size:191" json:"userName"`
	Emoji     string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_reactions_message_user_emoji" json:"emoji"`
	CreatedAt time.Time `json:"createdAt"`
}
