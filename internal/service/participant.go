package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/policy"
	"github.com/ayushanand27/xhire/internal/repository"
	"github.com/ayushanand27/xhire/internal/validation"
)

// Store operations. Each one persists before returning; a false result without an
// error means nothing changed.

// AddParticipant adds userID with role. False if the user is already present or the
// room is full.
func (s *RoomService) AddParticipant(ctx context.Context, roomID, userID uint, role domain.Role) (bool, error) {
	_, ok, err := s.roomRepo.AddParticipant(ctx, roomID, userID, role, s.now())
	if err != nil {
		return false, s.storeError(err, roomID, "add participant")
	}
	return ok, nil
}

func (s *RoomService) RemoveParticipant(ctx context.Context, roomID, userID uint) (bool, error) {
	removed, err := s.roomRepo.RemoveParticipant(ctx, roomID, userID)
	if err != nil {
		return false, s.storeError(err, roomID, "remove participant")
	}
	return removed, nil
}

func (s *RoomService) SetParticipantRole(ctx context.Context, roomID, userID uint, role domain.Role) (bool, error) {
	_, err := s.updateParticipant(ctx, roomID, userID, func(p *domain.Participant) { p.Role = role })
	return participantUpdated(err)
}

// SetParticipantPermissions merges patch over the current flags.
func (s *RoomService) SetParticipantPermissions(ctx context.Context, roomID, userID uint, patch domain.PermissionPatch) (bool, error) {
	_, err := s.updateParticipant(ctx, roomID, userID, func(p *domain.Participant) { patch.Apply(&p.Permissions) })
	return participantUpdated(err)
}

func (s *RoomService) IsParticipant(ctx context.Context, roomID, userID uint) (bool, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return false, err
	}
	return room.IsParticipant(userID), nil
}

func (s *RoomService) IsCreator(ctx context.Context, roomID, userID uint) (bool, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return false, err
	}
	return room.IsCreator(userID), nil
}

func (s *RoomService) IsFull(ctx context.Context, roomID uint) (bool, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return false, err
	}
	return room.IsFull(), nil
}

func (s *RoomService) IsLocked(ctx context.Context, roomID uint) (bool, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return false, err
	}
	return room.IsLocked(), nil
}

func participantUpdated(err error) (bool, error) {
	if errors.Is(err, ErrParticipantNotFound) {
		return false, nil
	}
	return err == nil, err
}

// updateParticipant loads the current row, applies fn and persists it.
func (s *RoomService) updateParticipant(ctx context.Context, roomID, userID uint, fn func(*domain.Participant)) (*domain.Participant, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	p := room.Participant(userID)
	if p == nil {
		return nil, ErrParticipantNotFound
	}
	fn(p)
	if err := s.roomRepo.UpdateParticipant(ctx, p); err != nil {
		return nil, s.storeError(err, roomID, "update participant")
	}
	out := *p
	return &out, nil
}

func (s *RoomService) storeError(err error, roomID uint, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrRoomNotFound
	}
	logrus.WithField("room_id", roomID).WithError(err).Errorf("Failed to %s", op)
	return fmt.Errorf("%w: %s", ErrInternalServer, op)
}

// Roster operations used by REST and realtime handlers.

func (s *RoomService) ListParticipants(ctx context.Context, actorID, roomID uint) ([]domain.Participant, error) {
	room, err := s.RequireMember(ctx, roomID, actorID)
	if err != nil {
		return nil, err
	}
	return room.Participants, nil
}

func (s *RoomService) GetParticipant(ctx context.Context, actorID, roomID, userID uint) (*domain.Participant, error) {
	room, err := s.RequireMember(ctx, roomID, actorID)
	if err != nil {
		return nil, err
	}
	p := room.Participant(userID)
	if p == nil {
		return nil, ErrParticipantNotFound
	}
	return p, nil
}

// ChangeRole sets the role of targetID. Only the creator may do it, and not to demote themself.
func (s *RoomService) ChangeRole(ctx context.Context, actorID, roomID, targetID uint, role domain.Role) (*domain.Participant, error) {
	if !role.Valid() {
		return nil, invalid("newRole: room_role")
	}
	room, actor, err := s.loadMember(ctx, roomID, actorID)
	if err != nil {
		return nil, err
	}
	err = authorize(policy.Request{Actor: actor, Action: policy.ActionChangeRole, TargetUserID: targetID, NewRole: role})
	if err != nil {
		return nil, err
	}
	if !room.IsParticipant(targetID) {
		return nil, ErrParticipantNotFound
	}
	p, err := s.updateParticipant(ctx, roomID, targetID, func(p *domain.Participant) { p.Role = role })
	if err != nil {
		return nil, err
	}
	s.record(ctx, roomID, actorID, domain.ActivityRoleChanged, "changed a participant role",
		map[string]any{"targetUserId": targetID, "newRole": string(role)})
	return p, nil
}

// ChangePermissions merges a wire-format patch into the permissions of targetID.
func (s *RoomService) ChangePermissions(ctx context.Context, actorID, roomID, targetID uint, patch map[string]bool) (*domain.Participant, error) {
	if err := validation.PermissionPatch(patch); err != nil {
		return nil, fmt.Errorf("%w: permissions: %s", ErrValidation, validation.Describe(err))
	}
	merge, err := domain.NewPermissionPatch(patch)
	if err != nil {
		return nil, invalid("%v", err)
	}
	room, actor, err := s.loadMember(ctx, roomID, actorID)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Actor: actor, Action: policy.ActionChangePermissions, TargetUserID: targetID}); err != nil {
		return nil, err
	}
	if !room.IsParticipant(targetID) {
		return nil, ErrParticipantNotFound
	}
	p, err := s.updateParticipant(ctx, roomID, targetID, func(p *domain.Participant) { merge.Apply(&p.Permissions) })
	if err != nil {
		return nil, err
	}
	meta := make(map[string]any, len(patch)+1)
	for k, v := range patch {
		meta[k] = v
	}
	meta["targetUserId"] = targetID
	s.record(ctx, roomID, actorID, domain.ActivityPermissionsChanged, "changed participant permissions", meta)
	return p, nil
}

// KickParticipant removes targetID from the room. Participants leave themselves
// through LeaveRoom instead.
func (s *RoomService) KickParticipant(ctx context.Context, actorID, roomID, targetID uint) error {
	if actorID == targetID {
		return invalid("use leave to remove yourself from a room")
	}
	room, actor, err := s.loadMember(ctx, roomID, actorID)
	if err != nil {
		return err
	}
	if err := authorize(policy.Request{Actor: actor, Action: policy.ActionRemoveParticipant, TargetUserID: targetID}); err != nil {
		return err
	}
	if !room.IsParticipant(targetID) {
		return ErrParticipantNotFound
	}
	removed, err := s.RemoveParticipant(ctx, roomID, targetID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrParticipantNotFound
	}
	s.removeMember(ctx, roomID, targetID)
	s.record(ctx, roomID, targetID, domain.ActivityLeft, "was removed from the room",
		map[string]any{"removedBy": actorID})
	return nil
}

// UpdateMediaStatus sets the actor's own media flags. Turning screen sharing on
// needs the screen-share permission; turning anything off never does.
func (s *RoomService) UpdateMediaStatus(ctx context.Context, userID, roomID uint, patch domain.MediaPatch) (*domain.Participant, error) {
	if patch.Empty() {
		return nil, invalid("no media status fields given")
	}
	room, actor, err := s.loadMember(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Actor: actor, Action: policy.ActionUpdateMedia}); err != nil {
		return nil, err
	}
	startsSharing := patch.IsScreenSharing != nil && *patch.IsScreenSharing
	if startsSharing {
		if err := authorize(policy.Request{Actor: actor, Action: policy.ActionScreenShare}); err != nil {
			return nil, err
		}
		if !room.Config.ScreenShareEnabled {
			return nil, denied(policy.ActionScreenShare, "Screen sharing is disabled in this room")
		}
	}
	p, err := s.updateParticipant(ctx, roomID, userID, patch.Apply)
	if err != nil {
		return nil, err
	}
	if startsSharing {
		s.record(ctx, roomID, userID, domain.ActivityScreenShared, "started screen sharing", nil)
	}
	return p, nil
}

// MuteParticipant sets the muted flag of another participant.
func (s *RoomService) MuteParticipant(ctx context.Context, actorID, roomID, targetID uint, muted bool) (*domain.Participant, error) {
	room, actor, err := s.loadMember(ctx, roomID, actorID)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Actor: actor, Action: policy.ActionMuteOthers, TargetUserID: targetID}); err != nil {
		return nil, err
	}
	if !room.IsParticipant(targetID) {
		return nil, ErrParticipantNotFound
	}
	return s.updateParticipant(ctx, roomID, targetID, func(p *domain.Participant) { p.IsMuted = muted })
}
