package dto

import (
	"encoding/json"
	"time"

	"github.com/ayushanand27/xhire/internal/domain"
)

// Inbound realtime event names.
const (
	EventCodeUpdated         = "code-updated"
	EventCursorPosition      = "cursor-position"
	EventExecuteCode         = "execute-code"
	EventScreenShareStarted  = "screen-share-started"
	EventScreenShareStopped  = "screen-share-stopped"
	EventToggleMute          = "toggle-mute"
	EventToggleCamera        = "toggle-camera"
	EventSendMessage         = "send-message"
	EventRequestParticipants = "request-participants"
	EventRoleChanged         = "role-changed"
	EventRoomSettingsChanged = "room-settings-changed"
	EventMuteParticipant     = "mute-participant"
	EventStartRecording      = "start-recording"
	EventStopRecording       = "stop-recording"
)

// Outbound realtime event names. Some share the inbound name.
const (
	EventParticipantJoined      = "participant-joined"
	EventParticipantLeft        = "participant-left"
	EventCodeExecutionResult    = "code-execution-result"
	EventUserMuted              = "user-muted"
	EventUserCameraToggled      = "user-camera-toggled"
	EventNewMessage             = "new-message"
	EventParticipantsList       = "participants-list"
	EventParticipantRoleChanged = "participant-role-changed"
	EventPermissionsChanged     = "participant-permissions-changed"
	EventParticipantRemoved     = "participant-removed"
	EventRecordingStarted       = "recording-started"
	EventRecordingStopped       = "recording-stopped"
	EventMessageEdited          = "message-edited"
	EventMessageDeleted         = "message-deleted"
	EventMessageReaction        = "message-reaction"
	EventPermissionDenied       = "permission-denied"
	EventError                  = "error"
)

// Envelope is the inbound frame: {"type": "...", "payload": {...}}.
type Envelope struct {
	Type    string          `json:"type" validate:"required,max=64"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// OutboundEnvelope is the frame written to sockets.
type OutboundEnvelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// --- inbound payloads ---

type CursorHint struct {
	Line   int `json:"line" validate:"gte=0"`
	Column int `json:"column" validate:"gte=0"`
}

type CodeUpdatePayload struct {
	Code           string      `json:"code" validate:"max=524288"`
	Language       string      `json:"language" validate:"required,notblank,max=32"`
	CursorPosition *CursorHint `json:"cursorPosition,omitempty"`
}

type CursorPositionPayload struct {
	Line     int    `json:"line" validate:"gte=0"`
	Column   int    `json:"column" validate:"gte=0"`
	UserName string `json:"userName" validate:"max=191"`
}

type ExecuteCodePayload struct {
	Code     string `json:"code" validate:"max=524288"`
	Language string `json:"language" validate:"omitempty,max=32"`
}

type ScreenSharePayload struct {
	UserName string `json:"userName" validate:"max=191"`
}

type ToggleMutePayload struct {
	IsMuted *bool `json:"isMuted" validate:"required"`
}

type ToggleCameraPayload struct {
	IsCameraOff *bool `json:"isCameraOff" validate:"required"`
}

type SendMessagePayload struct {
	Message  string `json:"message" validate:"required,notblank,max=4000"`
	UserName string `json:"userName" validate:"max=191"`
}

type RoleChangePayload struct {
	UserID  uint   `json:"userId" validate:"required"`
	NewRole string `json:"newRole" validate:"required,room_role"`
}

type RoomSettingsPayload struct {
	Settings map[string]any `json:"settings" validate:"required,min=1"`
}

type MuteParticipantPayload struct {
	UserID uint `json:"userId" validate:"required"`
}

type RecordingPayload struct {
	RecordingURL string `json:"recordingUrl" validate:"omitempty,url,max=512"`
}

// --- outbound payloads ---

type PresencePayload struct {
	UserID    uint      `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

type CodeUpdatedPayload struct {
	Code           string      `json:"code"`
	Language       string      `json:"language"`
	CursorPosition *CursorHint `json:"cursorPosition,omitempty"`
	UserID         uint        `json:"userId"`
	Timestamp      time.Time   `json:"timestamp"`
}

type CursorMovedPayload struct {
	UserID   uint   `json:"userId"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	UserName string `json:"userName,omitempty"`
}

type ExecutionResultPayload struct {
	UserID        uint      `json:"userId"`
	Output        string    `json:"output"`
	Error         string    `json:"error,omitempty"`
	Language      string    `json:"language,omitempty"`
	ExecutionTime int64     `json:"executionTime,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

type ScreenShareStatePayload struct {
	UserID          uint   `json:"userId"`
	UserName        string `json:"userName,omitempty"`
	IsScreenSharing bool   `json:"isScreenSharing"`
}

type UserMutedPayload struct {
	UserID  uint  `json:"userId"`
	IsMuted bool  `json:"isMuted"`
	MutedBy *uint `json:"mutedBy,omitempty"`
}

type CameraToggledPayload struct {
	UserID      uint `json:"userId"`
	IsCameraOff bool `json:"isCameraOff"`
}

type NewMessagePayload struct {
	MessageID uint      `json:"messageId,omitempty"`
	UserID    uint      `json:"userId"`
	UserName  string    `json:"userName"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type ParticipantsListPayload struct {
	Participants []domain.Participant `json:"participants"`
	Count        int                  `json:"count"`
	// Online lists the participants with an open connection.
	Online []uint `json:"online,omitempty"`
}

type RoleChangedPayload struct {
	UserID    uint        `json:"userId"`
	NewRole   domain.Role `json:"newRole"`
	ChangedBy uint        `json:"changedBy"`
}

type PermissionsChangedPayload struct {
	UserID      uint               `json:"userId"`
	Permissions domain.Permissions `json:"permissions"`
	ChangedBy   uint               `json:"changedBy"`
}

type ParticipantRemovedPayload struct {
	UserID    uint `json:"userId"`
	RemovedBy uint `json:"removedBy"`
}

type SettingsChangedPayload struct {
	Settings  map[string]any `json:"settings"`
	ChangedBy uint           `json:"changedBy"`
}

type RecordingStatePayload struct {
	IsRecording  bool       `json:"isRecording"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	RecordingURL *string    `json:"recordingUrl,omitempty"`
	ChangedBy    uint       `json:"changedBy,omitempty"`
}

type MessageDeletedPayload struct {
	MessageID uint `json:"messageId"`
	DeletedBy uint `json:"deletedBy"`
}

type PermissionDeniedPayload struct {
	Message string `json:"message"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
