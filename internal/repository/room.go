package repository

import (
	"context"
	"time"

	"github.com/ayushanand27/xhire/internal/domain"
)

// RoomFilter narrows a room listing. Zero values disable a filter.
type RoomFilter struct {
	Search   string
	RoomType domain.RoomType
	IsPublic *bool
	// VisibleTo limits results to public rooms plus rooms the user participates in.
	VisibleTo uint
	Status    domain.RoomStatus
	Page      Page
}

// RoomRepository persists rooms and their participant rows.
// Every mutating method is durable when it returns.
type RoomRepository interface {
	// Create inserts the room together with its initial participants.
	Create(ctx context.Context, room *domain.Room) error

	// FindByID loads the room with participants in join order.
	// Returns ErrRoomNotFound if it does not exist.
	FindByID(ctx context.Context, id uint) (*domain.Room, error)

	List(ctx context.Context, filter RoomFilter) ([]domain.Room, int64, error)

	// Update writes the editable room columns (name, description, visibility,
	// password, tags, config, expiry). Participants, shared code, status and
	// recording state are written by their dedicated methods.
	Update(ctx context.Context, room *domain.Room) error
	UpdateSharedCode(ctx context.Context, roomID uint, code domain.SharedCode) error
	UpdateStatus(ctx context.Context, roomID uint, status domain.RoomStatus) error
	UpdateRecording(ctx context.Context, roomID uint, rec domain.Recording) error

	// Delete removes the room, its participants and its chat history.
	Delete(ctx context.Context, id uint) error

	// AddParticipant inserts a participant after checking duplicates and capacity
	// under a lock on the room row. ok is false, with a nil error, when the user is
	// already present or the room is full.
	AddParticipant(ctx context.Context, roomID, userID uint, role domain.Role, joinedAt time.Time) (p *domain.Participant, ok bool, err error)
	RemoveParticipant(ctx context.Context, roomID, userID uint) (bool, error)
	// UpdateParticipant writes role, permissions and media flags of an existing row.
	UpdateParticipant(ctx context.Context, p *domain.Participant) error

	// FindExpired returns rooms whose expiry is at or before now.
	FindExpired(ctx context.Context, now time.Time, limit int) ([]domain.Room, error)
	// FindInactiveBefore returns inactive rooms untouched since before.
	FindInactiveBefore(ctx context.Context, before time.Time, limit int) ([]domain.Room, error)
}
