package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/dto"
	"github.com/ayushanand27/xhire/internal/service"
)

// RoomHandler serves room CRUD, membership and recording endpoints.
type RoomHandler struct {
	roomService *service.RoomService
	hub         Broadcaster
}

func NewRoomHandler(roomService *service.RoomService, hub Broadcaster) *RoomHandler {
	if roomService == nil {
		panic("RoomService cannot be nil for RoomHandler")
	}
	return &RoomHandler{roomService: roomService, hub: orNoop(hub)}
}

type JoinRoomRequest struct {
	Password string `json:"password" validate:"max=72"`
}

type StopRecordingRequest struct {
	RecordingURL string `json:"recordingUrl" validate:"omitempty,url,max=512"`
}

// CreateRoom handles POST /rooms.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var in service.CreateRoomInput
	if !bindJSON(c, &in) {
		return
	}
	room, err := h.roomService.CreateRoom(c.Request.Context(), user, in)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	logrus.WithFields(logrus.Fields{"room_id": room.ID, "user_id": user.ID}).Info("Room created")
	SuccessResponse(c, http.StatusCreated, room)
}

// ListRooms handles GET /rooms.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var in service.ListRoomsInput
	if err := c.ShouldBindQuery(&in); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}
	rooms, total, page, err := h.roomService.ListRooms(c.Request.Context(), user.ID, in)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	PagedResponse(c, http.StatusOK, "rooms", rooms, page.Page, page.Limit, total)
}

// GetRoom handles GET /rooms/:roomId.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	room, err := h.roomService.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, room)
}

// UpdateRoom handles PUT /rooms/:roomId. Connected members get the new settings.
func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	var in service.UpdateRoomInput
	if !bindJSON(c, &in) {
		return
	}
	room, err := h.roomService.UpdateRoom(c.Request.Context(), user.ID, roomID, in)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	h.hub.BroadcastToRoom(c.Request.Context(), roomID, dto.EventRoomSettingsChanged, dto.SettingsChangedPayload{
		Settings:  roomSettings(room),
		ChangedBy: user.ID,
	})
	SuccessResponse(c, http.StatusOK, room)
}

// DeleteRoom handles DELETE /rooms/:roomId.
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	if err := h.roomService.DeleteRoom(c.Request.Context(), user.ID, roomID); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Room deleted successfully"})
}

// JoinRoom handles POST /rooms/:roomId/join.
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	var req JoinRoomRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	room, err := h.roomService.JoinRoom(c.Request.Context(), user, roomID, req.Password)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Joined room successfully", "room": room})
}

// LeaveRoom handles POST /rooms/:roomId/leave. The caller's open sockets to the
// room are closed.
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	dep, err := h.roomService.LeaveRoom(c.Request.Context(), user.ID, roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	ctx := c.Request.Context()
	h.hub.BroadcastToRoom(ctx, roomID, dto.EventParticipantLeft, dto.PresencePayload{UserID: user.ID, Timestamp: timeNow()})
	h.hub.DisconnectUser(ctx, roomID, user.ID)
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Left room successfully", "roomDeactivated": dep.Deactivated})
}

// StreamToken handles GET /rooms/:roomId/stream-token.
func (h *RoomHandler) StreamToken(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	creds, err := h.roomService.StreamToken(c.Request.Context(), user, roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, creds)
}

// StartRecording handles POST /rooms/:roomId/recording/start.
func (h *RoomHandler) StartRecording(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	rec, err := h.roomService.StartRecording(c.Request.Context(), user.ID, roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	h.hub.BroadcastToRoom(c.Request.Context(), roomID, dto.EventRecordingStarted, recordingPayload(rec, user.ID))
	SuccessResponse(c, http.StatusOK, rec)
}

// StopRecording handles POST /rooms/:roomId/recording/stop.
func (h *RoomHandler) StopRecording(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	var req StopRecordingRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	rec, err := h.roomService.StopRecording(c.Request.Context(), user.ID, roomID, req.RecordingURL)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	h.hub.BroadcastToRoom(c.Request.Context(), roomID, dto.EventRecordingStopped, recordingPayload(rec, user.ID))
	SuccessResponse(c, http.StatusOK, rec)
}

func recordingPayload(rec *domain.Recording, by uint) dto.RecordingStatePayload {
	return dto.RecordingStatePayload{
		IsRecording:  rec.Active,
		StartedAt:    rec.StartedAt,
		RecordingURL: rec.URL,
		ChangedBy:    by,
	}
}

func roomSettings(r *domain.Room) map[string]any {
	return map[string]any{
		"name":        r.Name,
		"description": r.Description,
		"roomType":    r.RoomType,
		"isPublic":    r.IsPublic,
		"isLocked":    r.IsLocked(),
		"tags":        r.TagList(),
		"roomConfig":  r.Config,
		"expiresAt":   r.ExpiresAt,
	}
}
