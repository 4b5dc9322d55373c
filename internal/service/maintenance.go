package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayushanand27/xhire/internal/domain"
)

// Housekeeping used by the periodic worker tasks.

// ExpiredRoomIDs lists rooms whose expiry has passed.
func (s *RoomService) ExpiredRoomIDs(ctx context.Context, limit int) ([]uint, error) {
	rooms, err := s.roomRepo.FindExpired(ctx, s.now(), limit)
	if err != nil {
		return nil, mapRepoError(err, ErrRoomNotFound)
	}
	return roomIDs(rooms), nil
}

// StaleRoomIDs lists inactive rooms untouched for longer than retention.
func (s *RoomService) StaleRoomIDs(ctx context.Context, retention time.Duration, limit int) ([]uint, error) {
	rooms, err := s.roomRepo.FindInactiveBefore(ctx, s.now().Add(-retention), limit)
	if err != nil {
		return nil, mapRepoError(err, ErrRoomNotFound)
	}
	return roomIDs(rooms), nil
}

// PurgeRoom deletes an expired room and its provider channel. A room that is
// already gone counts as purged.
func (s *RoomService) PurgeRoom(ctx context.Context, roomID uint) error {
	err := mapRepoError(s.roomRepo.Delete(ctx, roomID), ErrRoomNotFound)
	switch {
	case err == nil:
		s.deleteChannel(ctx, roomID)
		logrus.WithField("room_id", roomID).Info("Expired room purged")
		return nil
	case err == ErrRoomNotFound:
		return nil
	}
	return err
}

// ArchiveRoom moves an inactive room to archived. Archived rooms are kept but no
// longer listed by default.
func (s *RoomService) ArchiveRoom(ctx context.Context, roomID uint) error {
	err := mapRepoError(s.roomRepo.UpdateStatus(ctx, roomID, domain.RoomStatusArchived), ErrRoomNotFound)
	if err == ErrRoomNotFound {
		return nil
	}
	if err == nil {
		logrus.WithField("room_id", roomID).Info("Inactive room archived")
	}
	return err
}

func roomIDs(rooms []domain.Room) []uint {
	ids := make([]uint, len(rooms))
	for i := range rooms {
		ids[i] = rooms[i].ID
	}
	return ids
}
