package domain

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityType is the closed set of events the activity log accepts.
type ActivityType string

const (
	ActivityJoined             ActivityType = "joined"
	ActivityLeft               ActivityType = "left"
	ActivityCodeChanged        ActivityType = "code-changed"
	ActivityCodeExecuted       ActivityType = "code-executed"
	ActivityScreenShared       ActivityType = "screen-shared"
	ActivityMessageSent        ActivityType = "message-sent"
	ActivityRoleChanged        ActivityType = "role-changed"
	ActivityPermissionsChanged ActivityType = "permissions-changed"
	ActivityRecordingStarted   ActivityType = "recording-started"
	ActivityRecordingStopped   ActivityType = "recording-stopped"
)

var ActivityTypes = []ActivityType{
	ActivityJoined, ActivityLeft, ActivityCodeChanged, ActivityCodeExecuted, ActivityScreenShared,
	ActivityMessageSent, ActivityRoleChanged, ActivityPermissionsChanged, ActivityRecordingStarted,
	ActivityRecordingStopped,
}

func (t ActivityType) Valid() bool {
	for _, known := range ActivityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ActivityRecord is an append-only audit entry. Records are never updated.
type ActivityRecord struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	RoomID      uint              `gorm:"not null;index:idx_activity_room_created" json:"roomId"`
	UserID      uint              `gorm:"not null;index:idx_activity_user_created" json:"userId"`
	UserName    string            `gorm:"size:191" json:"userName"`
	EventType   ActivityType      `gorm:"type:varchar(32);not null;index" json:"eventType"`
	Description string            `gorm:"size:512" json:"description"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`
	IPAddress   string            `gorm:"size:64" json:"ipAddress,omitempty"`
	CreatedAt   time.Time         `gorm:"index:idx_activity_room_created;index:idx_activity_user_created" json:"timestamp"`
}

// EventCount is one row of an activity breakdown.
type EventCount struct {
	EventType ActivityType `json:"eventType"`
	Count     int64        `json:"count"`
}

// HourCount is the busiest hour of day, formatted "HH:00".
type HourCount struct {
	Hour  string `json:"hour"`
	Count int64  `json:"count"`
}

// ActivityStats summarises a room's activity log.
type ActivityStats struct {
	TotalActivities int64            `json:"totalActivities"`
	UniqueUsers     int64            `json:"uniqueUsers"`
	EventBreakdown  []EventCount     `json:"eventBreakdown"`
	PeakHour        *HourCount       `json:"peakActivityHour,omitempty"`
	Recent          []ActivityRecord `json:"recentActivities"`
}
