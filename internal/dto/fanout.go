package dto

import "encoding/json"

// FanoutMessage carries one room broadcast between server processes.
type FanoutMessage struct {
	// Node is the publishing process; it already delivered locally and ignores its own messages.
	Node   string `json:"node"`
	RoomID uint   `json:"roomId"`
	// ExcludeConn is the connection id that must not receive the frame, if any.
	ExcludeConn string `json:"excludeConn,omitempty"`
	// DisconnectUser, when set, asks every process to close that user's connections
	// to the room instead of delivering Data.
	DisconnectUser uint            `json:"disconnectUser,omitempty"`
	Data           json.RawMessage `json:"data,omitempty"`
}
