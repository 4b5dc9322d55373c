package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/dto"
	"github.com/ayushanand27/xhire/internal/metrics"
	"github.com/ayushanand27/xhire/internal/policy"
	"github.com/ayushanand27/xhire/internal/repository"
	"github.com/ayushanand27/xhire/internal/validation"
)

// Scope selects which connections of a room receive a dispatch.
type Scope int

const (
	// ScopeSender is the originating connection only.
	ScopeSender Scope = iota
	// ScopeRoom is every connection in the room, the sender included.
	ScopeRoom
	// ScopeOthers is every connection in the room except the sender.
	ScopeOthers
)

// Dispatch is one outbound event produced by the router.
type Dispatch struct {
	Scope   Scope
	Event   string
	Payload any
}

// Envelope renders the dispatch as a socket frame.
func (d Dispatch) Envelope() dto.OutboundEnvelope {
	return dto.OutboundEnvelope{Type: d.Event, Payload: d.Payload}
}

// EventContext identifies the connection an event arrived on. The identifiers were
// fixed at handshake time.
type EventContext struct {
	RoomID   uint
	UserID   uint
	UserName string
	ConnID   string
}

type eventHandler func(ctx context.Context, ec EventContext, payload json.RawMessage) ([]Dispatch, error)

// CollaborationService routes inbound realtime events: decode and validate, load
// state, check policy, mutate, then describe the broadcast. It never writes to
// sockets itself.
type CollaborationService struct {
	rooms    *RoomService
	presence repository.PresenceRepository
	handlers map[string]eventHandler
	now      func() time.Time
}

// NewCollaborationService builds the router. presence may be nil, in which case
// participant lists carry no connection state.
func NewCollaborationService(rooms *RoomService, presence repository.PresenceRepository) *CollaborationService {
	if rooms == nil {
		panic("RoomService cannot be nil for CollaborationService")
	}
	s := &CollaborationService{rooms: rooms, presence: presence, now: time.Now}
	s.handlers = map[string]eventHandler{
		dto.EventCodeUpdated:         s.codeUpdated,
		dto.EventCursorPosition:      s.cursorPosition,
		dto.EventExecuteCode:         s.executeCode,
		dto.EventScreenShareStarted:  s.screenShare(true),
		dto.EventScreenShareStopped:  s.screenShare(false),
		dto.EventToggleMute:          s.toggleMute,
		dto.EventToggleCamera:        s.toggleCamera,
		dto.EventSendMessage:         s.sendMessage,
		dto.EventRequestParticipants: s.requestParticipants,
		dto.EventRoleChanged:         s.roleChanged,
		dto.EventRoomSettingsChanged: s.roomSettingsChanged,
		dto.EventMuteParticipant:     s.muteParticipant,
		dto.EventStartRecording:      s.startRecording,
		dto.EventStopRecording:       s.stopRecording,
	}
	return s
}

// HandleEvent processes one raw frame. The returned dispatches are always safe to
// deliver: on failure they hold a single permission-denied or error event for the
// sender, and err carries the cause for logging.
func (s *CollaborationService) HandleEvent(ctx context.Context, ec EventContext, raw []byte) ([]Dispatch, error) {
	var env dto.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return s.fail(ec, "", invalid("malformed event frame"))
	}
	if err := validateInput(env); err != nil {
		return s.fail(ec, env.Type, err)
	}
	handler, ok := s.handlers[env.Type]
	if !ok {
		return s.fail(ec, env.Type, invalid("unknown event type %q", env.Type))
	}
	out, err := handler(ctx, ec, env.Payload)
	if err != nil {
		return s.fail(ec, env.Type, err)
	}
	metrics.WSEvents.WithLabelValues("ok").Inc()
	return out, nil
}

func (s *CollaborationService) fail(ec EventContext, event string, err error) ([]Dispatch, error) {
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id": ec.RoomID,
		"user_id": ec.UserID,
		"conn_id": ec.ConnID,
		"event":   event,
	}).WithError(err)

	var deniedErr *DeniedError
	if errors.As(err, &deniedErr) {
		metrics.WSEvents.WithLabelValues("denied").Inc()
		metrics.PermissionDenials.WithLabelValues(string(deniedErr.Action)).Inc()
		logCtx.Info("Event denied")
		return []Dispatch{{
			Scope:   ScopeSender,
			Event:   dto.EventPermissionDenied,
			Payload: dto.PermissionDeniedPayload{Message: deniedErr.Reason},
		}}, err
	}

	kind := KindOf(err)
	if kind == KindInternal {
		metrics.WSEvents.WithLabelValues("error").Inc()
		logCtx.Error("Event failed")
	} else {
		metrics.WSEvents.WithLabelValues("rejected").Inc()
		logCtx.Debug("Event rejected")
	}
	return []Dispatch{{
		Scope:   ScopeSender,
		Event:   dto.EventError,
		Payload: dto.ErrorPayload{Code: string(kind), Message: PublicMessage(err)},
	}}, err
}

// decodePayload unmarshals and validates a payload before any state is touched.
func decodePayload[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, invalid("malformed payload")
	}
	if err := validation.Struct(v); err != nil {
		return v, invalid("%s", validation.Describe(err))
	}
	return v, nil
}

func (s *CollaborationService) displayName(ec EventContext, fallback string) string {
	if ec.UserName != "" {
		return ec.UserName
	}
	return fallback
}

func (s *CollaborationService) codeUpdated(ctx context.Context, ec EventContext, raw json.RawMessage) ([]Dispatch, error) {
	p, err := decodePayload[dto.CodeUpdatePayload](raw)
	if err != nil {
		return nil, err
	}
	code, err := s.rooms.EditCode(ctx, ec.UserID, ec.RoomID, p.Code, p.Language)
	if err != nil {
		return nil, err
	}
	return []Dispatch{{
		Scope: ScopeOthers,
		Event: dto.EventCodeUpdated,
		Payload: dto.CodeUpdatedPayload{
			Code:           code.Code,
			Language:       code.Language,
			CursorPosition: p.CursorPosition,
			UserID:         ec.UserID,
			Timestamp:      s.now(),
		},
	}}, nil
}

// cursorPosition is pure relay; nothing is loaded or stored.
func (s *CollaborationService) cursorPosition(_ context.Context, ec EventContext, raw json.RawMessage) ([]Dispatch, error) {
	p, err := decodePayload[dto.CursorPositionPayload](raw)
	if err != nil {
		return nil, err
	}
	return []Dispatch{{
		Scope: ScopeOthers,
		Event: dto.EventCursorPosition,
		Payload: dto.CursorMovedPayload{
			UserID:   ec.UserID,
			Line:     p.Line,
			Column:   p.Column,
			UserName: s.displayName(ec, p.UserName),
		},
	}}, nil
}

// executeCode checks the permission and announces the run. The run itself goes
// through the REST execution endpoint, which broadcasts the real result.
func (s *CollaborationService) executeCode(ctx context.Context, ec EventContext, raw json.RawMessage) ([]Dispatch, error) {
	p, err := decodePayload[dto.ExecuteCodePayload](raw)
	if err != nil {
		return nil, err
	}
	room, actor, err := s.rooms.loadMember(ctx, ec.RoomID, ec.UserID)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Actor: actor, Action: policy.ActionExecuteCode}); err != nil {
		return nil, err
	}
	lang := p.Language
	if lang == "" {
		lang = room.SharedCode.Language
	}
	return []Dispatch{{
		Scope: ScopeRoom,
		Event: dto.EventCodeExecutionResult,
		Payload: dto.ExecutionResultPayload{
			UserID:    ec.UserID,
			Output:    "Code execution requested",
			Language:  lang,
			Timestamp: s.now(),
		},
	}}, nil
}

func (s *CollaborationService) screenShare(on bool) eventHandler {
	event := dto.EventScreenShareStopped
	if on {
		event = dto.EventScreenShareStarted
	}
	return func(ctx context.Context, ec EventContext, raw json.RawMessage) ([]Dispatch, error) {
		p, err := decodePayload[dto.ScreenSharePayload](raw)
		if err != nil {
			return nil, err
		}
		flag := on
		participant, err := s.rooms.UpdateMediaStatus(ctx, ec.UserID, ec.RoomID, domain.MediaPatch{IsScreenSharing: &flag})
		if err != nil {
			return nil, err
		}
		return []Dispatch{{
			Scope: ScopeRoom,
			Event: event,
			Payload: dto.ScreenShareStatePayload{
				UserID:          ec.UserID,
				UserName:        s.displayName(ec, p.UserName),
				IsScreenSharing: participant.IsScreenSharing,
			},
		}}, nil
	}
}

// toggleMute sets the flag to the value carried by the event, so repeating an event
// is idempotent.
func (s *CollaborationService) toggleMute(ctx context.Context, ec EventContext, raw json.RawMessage) ([]Dispatch, error) {
	p, err := decodePayload[dto.ToggleMutePayload](raw)
	if err != nil {
		return nil, err
	}
	participant, err := s.rooms.UpdateMediaStatus(ctx, ec.UserID, ec.RoomID, domain.MediaPatch{IsMuted: p.IsMuted})
	if err != nil {
		return nil, err
	}
	return []Dispatch{{
		Scope:   ScopeRoom,
		Event:   dto.EventUserMuted,
		Payload: dto.UserMutedPayload{UserID: ec.UserID, IsMuted: participant.IsMuted},
	}}, nil
}

func (s *CollaborationService) toggleCamera(ctx context.Context, ec EventContext, raw json.RawMessage) ([]Dispatch, error) {
	p, err := decodePayload[dto.ToggleCameraPayload](raw)
	if err != nil {
		return nil, err
	}
	participant, err := s.rooms.UpdateMediaStatus(ctx, ec.UserID, ec.RoomID, domain.MediaPatch{IsCameraOff: p.IsCameraOff})
	if err != nil {
		return nil, err
	}
	return []Dispatch{{
		Scope:   ScopeRoom,
		Event:   dto.EventUserCameraToggled,
		Payload: dto.CameraToggledPayload{UserID: ec.UserID, IsCameraOff: participant.IsCameraOff},
	}}, nil
}

// sendMessage relays chat. Persistence is the chat REST endpoint's job.
func (s *CollaborationService) sendMessage(ctx context.Context, ec EventContext, raw json.RawMessage) ([]Dispatch, error) {
	p, err := decodePayload[dto.SendMessagePayload](raw)
	if err != nil {
		return nil, err
	}
	room, actor, err := s.rooms.loadMember(ctx, ec.RoomID, ec.UserID)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Actor: actor, Action: policy.ActionChat}); err != nil {
		return nil, err
	}
	if !room.Config.ChatEnabled {
		return nil, denied(policy.ActionChat, "Chat is disabled in this room")
	}
	return []Dispatch{{
		Scope: ScopeRoom,
		Event: dto.EventNewMessage,
		Payload: dto.NewMessagePayload{
			UserID:    ec.UserID,
			UserName:  s.displayName(ec, p.UserName),
			Message:   p.Message,
			Timestamp: s.now(),
		},
	}}, nil
}

func (s *CollaborationService) requestParticipants(ctx context.Context, ec EventContext, _ json.RawMessage) ([]Dispatch, error) {
	room, err := s.rooms.loadRoom(ctx, ec.RoomID)
	if err != nil {
		return nil, err
	}
	participants := room.Participants
	if participants == nil {
		participants = []domain.Participant{}
	}
	return []Dispatch{{
		Scope: ScopeSender,
		Event: dto.EventParticipantsList,
		Payload: dto.ParticipantsListPayload{
			Participants: participants,
			Count:        len(participants),
			Online:       s.online(ctx, ec.RoomID, participants),
		},
	}}, nil
}

// online returns the participants that hold at least one live connection. A
// participant whose presence cannot be read is left out.
func (s *CollaborationService) online(ctx context.Context, roomID uint, participants []domain.Participant) []uint {
	if s.presence == nil {
		return nil
	}
	ids := make([]uint, 0, len(participants))
	for _, p := range participants {
		n, err := s.presence.Count(ctx, roomID, p.UserID)
		if err != nil {
			logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": p.UserID}).
				WithError(err).Warn("Failed to read presence")
			continue
		}
		if n > 0 {
			ids = append(ids, p.UserID)
		}
	}
	return ids
}

// roleChanged announces a role change that was already persisted over REST.
func (s *CollaborationService) roleChanged(ctx context.Context, ec EventContext, raw json.RawMessage) ([]Dispatch, error) {
	p, err := decodePayload[dto.RoleChangePayload](raw)
	if err != nil {
		return nil, err
	}
	_, actor, err := s.rooms.loadMember(ctx, ec.RoomID, ec.UserID)
	if err != nil {
		return nil, err
	}
	role := domain.Role(p.NewRole)
	err = authorize(policy.Request{Actor: actor, Action: policy.ActionChangeRole, TargetUserID: p.UserID, NewRole: role})
	if err != nil {
		return nil, err
	}
	return []Dispatch{{
		Scope:   ScopeRoom,
		Event:   dto.EventParticipantRoleChanged,
		Payload: dto.RoleChangedPayload{UserID: p.UserID, NewRole: role, ChangedBy: ec.UserID},
	}}, nil
}

func (s *CollaborationService) roomSettingsChanged(ctx context.Context, ec EventContext, raw json.RawMessage) ([]Dispatch, error) {
	p, err := decodePayload[dto.RoomSettingsPayload](raw)
	if err != nil {
		return nil, err
	}
	_, actor, err := s.rooms.loadMember(ctx, ec.RoomID, ec.UserID)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Actor: actor, Action: policy.ActionUpdateSettings}); err != nil {
		return nil, err
	}
	return []Dispatch{{
		Scope:   ScopeOthers,
		Event:   dto.EventRoomSettingsChanged,
		Payload: dto.SettingsChangedPayload{Settings: p.Settings, ChangedBy: ec.UserID},
	}}, nil
}

func (s *CollaborationService) muteParticipant(ctx context.Context, ec EventContext, raw json.RawMessage) ([]Dispatch, error) {
	p, err := decodePayload[dto.MuteParticipantPayload](raw)
	if err != nil {
		return nil, err
	}
	target, err := s.rooms.MuteParticipant(ctx, ec.UserID, ec.RoomID, p.UserID, true)
	if err != nil {
		return nil, err
	}
	mutedBy := ec.UserID
	return []Dispatch{{
		Scope:   ScopeRoom,
		Event:   dto.EventUserMuted,
		Payload: dto.UserMutedPayload{UserID: target.UserID, IsMuted: target.IsMuted, MutedBy: &mutedBy},
	}}, nil
}

func (s *CollaborationService) startRecording(ctx context.Context, ec EventContext, _ json.RawMessage) ([]Dispatch, error) {
	rec, err := s.rooms.StartRecording(ctx, ec.UserID, ec.RoomID)
	if err != nil {
		return nil, err
	}
	return []Dispatch{{
		Scope:   ScopeRoom,
		Event:   dto.EventRecordingStarted,
		Payload: dto.RecordingStatePayload{IsRecording: true, StartedAt: rec.StartedAt, ChangedBy: ec.UserID},
	}}, nil
}

func (s *CollaborationService) stopRecording(ctx context.Context, ec EventContext, raw json.RawMessage) ([]Dispatch, error) {
	p, err := decodePayload[dto.RecordingPayload](raw)
	if err != nil {
		return nil, err
	}
	rec, err := s.rooms.StopRecording(ctx, ec.UserID, ec.RoomID, p.RecordingURL)
	if err != nil {
		return nil, err
	}
	return []Dispatch{{
		Scope: ScopeRoom,
		Event: dto.EventRecordingStopped,
		Payload: dto.RecordingStatePayload{
			IsRecording:  false,
			StartedAt:    rec.StartedAt,
			RecordingURL: rec.URL,
			ChangedBy:    ec.UserID,
		},
	}}, nil
}
