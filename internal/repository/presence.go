package repository

import "context"

// PresenceRepository tracks live connections per (room, user), shared by every
// server process. A connection stays live only while its heartbeat is fresh.
type PresenceRepository interface {
	// Attach records a connection and returns the user's live connection count.
	Attach(ctx context.Context, roomID, userID uint, connID string) (int64, error)
	// Heartbeat marks an attached connection as still open.
	Heartbeat(ctx context.Context, roomID, userID uint, connID string) error
	// Detach forgets a connection and returns how many live ones remain.
	Detach(ctx context.Context, roomID, userID uint, connID string) (int64, error)
	// Count returns the live connection count.
	Count(ctx context.Context, roomID, userID uint) (int64, error)
}
