package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ayushanand27/xhire/internal/repository"
)

// LifecycleService turns connection open/close into room membership changes.
// Connections are tracked per (room, user) across processes; only the close of a
// user's last live connection counts as leaving. There is no grace period.
type LifecycleService struct {
	presence repository.PresenceRepository
	rooms    *RoomService
}

func NewLifecycleService(presence repository.PresenceRepository, rooms *RoomService) *LifecycleService {
	if presence == nil {
		panic("PresenceRepository cannot be nil for LifecycleService")
	}
	if rooms == nil {
		panic("RoomService cannot be nil for LifecycleService")
	}
	return &LifecycleService{presence: presence, rooms: rooms}
}

// Connect records an open connection and returns the user's connection count.
func (s *LifecycleService) Connect(ctx context.Context, roomID, userID uint, connID string) (int64, error) {
	n, err := s.presence.Attach(ctx, roomID, userID, connID)
	if err != nil {
		logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID, "conn_id": connID}).
			WithError(err).Error("Failed to record connection")
		return 0, ErrInternalServer
	}
	return n, nil
}

// Heartbeat keeps an open connection live in the presence store.
func (s *LifecycleService) Heartbeat(ctx context.Context, roomID, userID uint, connID string) error {
	if err := s.presence.Heartbeat(ctx, roomID, userID, connID); err != nil {
		return fmt.Errorf("%w: %v", ErrInternalServer, err)
	}
	return nil
}

// Disconnect records a closed connection. When it was the user's last one the user
// departs the room. If the presence store is unreachable the close is treated as
// the last one.
func (s *LifecycleService) Disconnect(ctx context.Context, roomID, userID uint, connID string) (*Departure, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID, "conn_id": connID})
	remaining, err := s.presence.Detach(ctx, roomID, userID, connID)
	if err != nil {
		logCtx.WithError(err).Warn("Presence detach failed; treating as last connection")
		remaining = 0
	}
	if remaining > 0 {
		logCtx.WithField("open_connections", remaining).Debug("User still connected elsewhere")
		return &Departure{OpenConnections: remaining}, nil
	}
	return s.rooms.Depart(ctx, roomID, userID)
}
