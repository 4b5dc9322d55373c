package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/dto"
	"github.com/ayushanand27/xhire/internal/service"
)

// ParticipantHandler serves the roster endpoints under /rooms/:roomId/participants.
type ParticipantHandler struct {
	roomService *service.RoomService
	hub         Broadcaster
}

func NewParticipantHandler(roomService *service.RoomService, hub Broadcaster) *ParticipantHandler {
	if roomService == nil {
		panic("RoomService cannot be nil for ParticipantHandler")
	}
	return &ParticipantHandler{roomService: roomService, hub: orNoop(hub)}
}

type ChangeRoleRequest struct {
	Role domain.Role `json:"role" validate:"required,room_role"`
}

type ChangePermissionsRequest struct {
	Permissions map[string]bool `json:"permissions" validate:"required,min=1"`
}

func (h *ParticipantHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	participants, err := h.roomService.ListParticipants(c.Request.Context(), user.ID, roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dto.ParticipantsListPayload{Participants: participants, Count: len(participants)})
}

func (h *ParticipantHandler) Get(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	targetID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	p, err := h.roomService.GetParticipant(c.Request.Context(), user.ID, roomID, targetID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, p)
}

// ChangeRole handles PUT /rooms/:roomId/participants/:userId/role.
func (h *ParticipantHandler) ChangeRole(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	targetID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	var req ChangeRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.roomService.ChangeRole(c.Request.Context(), user.ID, roomID, targetID, req.Role)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	h.hub.BroadcastToRoom(c.Request.Context(), roomID, dto.EventParticipantRoleChanged, dto.RoleChangedPayload{
		UserID: targetID, NewRole: p.Role, ChangedBy: user.ID,
	})
	SuccessResponse(c, http.StatusOK, p)
}

// ChangePermissions handles PUT /rooms/:roomId/participants/:userId/permissions.
func (h *ParticipantHandler) ChangePermissions(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	targetID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	var req ChangePermissionsRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.roomService.ChangePermissions(c.Request.Context(), user.ID, roomID, targetID, req.Permissions)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	h.hub.BroadcastToRoom(c.Request.Context(), roomID, dto.EventPermissionsChanged, dto.PermissionsChangedPayload{
		UserID: targetID, Permissions: p.Permissions, ChangedBy: user.ID,
	})
	SuccessResponse(c, http.StatusOK, p)
}

// Remove handles DELETE /rooms/:roomId/participants/:userId. The removed user's
// sockets are closed after the room is told.
func (h *ParticipantHandler) Remove(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	targetID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	if err := h.roomService.KickParticipant(c.Request.Context(), user.ID, roomID, targetID); err != nil {
		HandleServiceError(c, err)
		return
	}
	ctx := c.Request.Context()
	h.hub.BroadcastToRoom(ctx, roomID, dto.EventParticipantRemoved, dto.ParticipantRemovedPayload{UserID: targetID, RemovedBy: user.ID})
	h.hub.DisconnectUser(ctx, roomID, targetID)
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Participant removed successfully"})
}

// UpdateMediaStatus handles PUT /rooms/:roomId/participants/me/media-status.
func (h *ParticipantHandler) UpdateMediaStatus(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	var patch domain.MediaPatch
	if !bindJSON(c, &patch) {
		return
	}
	p, err := h.roomService.UpdateMediaStatus(c.Request.Context(), user.ID, roomID, patch)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	ctx := c.Request.Context()
	if patch.IsMuted != nil {
		h.hub.BroadcastToRoom(ctx, roomID, dto.EventUserMuted, dto.UserMutedPayload{UserID: user.ID, IsMuted: p.IsMuted})
	}
	if patch.IsCameraOff != nil {
		h.hub.BroadcastToRoom(ctx, roomID, dto.EventUserCameraToggled, dto.CameraToggledPayload{UserID: user.ID, IsCameraOff: p.IsCameraOff})
	}
	if patch.IsScreenSharing != nil {
		event := dto.EventScreenShareStopped
		if p.IsScreenSharing {
			event = dto.EventScreenShareStarted
		}
		h.hub.BroadcastToRoom(ctx, roomID, event, dto.ScreenShareStatePayload{
			UserID: user.ID, UserName: user.DisplayName(), IsScreenSharing: p.IsScreenSharing,
		})
	}
	SuccessResponse(c, http.StatusOK, p)
}
