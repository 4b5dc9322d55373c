package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ayushanand27/xhire/internal/dto"
	"github.com/ayushanand27/xhire/internal/service"
)

// ChatHandler serves persisted room chat. Every change is pushed to the room.
type ChatHandler struct {
	chatService *service.ChatService
	hub         Broadcaster
}

func NewChatHandler(chatService *service.ChatService, hub Broadcaster) *ChatHandler {
	if chatService == nil {
		panic("ChatService cannot be nil for ChatHandler")
	}
	return &ChatHandler{chatService: chatService, hub: orNoop(hub)}
}

func (h *ChatHandler) Send(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	var in service.SendMessageInput
	if !bindJSON(c, &in) {
		return
	}
	msg, err := h.chatService.SendMessage(c.Request.Context(), user, roomID, in)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	h.hub.BroadcastToRoom(c.Request.Context(), roomID, dto.EventNewMessage, dto.NewMessagePayload{
		MessageID: msg.ID,
		UserID:    msg.SenderID,
		UserName:  msg.SenderName,
		Message:   msg.Message,
		Timestamp: msg.CreatedAt,
	})
	SuccessResponse(c, http.StatusCreated, msg)
}

// History handles GET /rooms/:roomId/chat/history?page=&limit=.
func (h *ChatHandler) History(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	page := pageFrom(c)
	msgs, total, err := h.chatService.History(c.Request.Context(), user.ID, roomID, page)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	PagedResponse(c, http.StatusOK, "messages", msgs, page.Page, page.Limit, total)
}

// Search handles GET /rooms/:roomId/chat/search?q=.
func (h *ChatHandler) Search(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	msgs, err := h.chatService.Search(c.Request.Context(), user.ID, roomID, c.Query("q"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"messages": msgs, "count": len(msgs)})
}

func (h *ChatHandler) Edit(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	messageID, ok := pathID(c, "messageId")
	if !ok {
		return
	}
	var in service.EditMessageInput
	if !bindJSON(c, &in) {
		return
	}
	msg, err := h.chatService.EditMessage(c.Request.Context(), user.ID, messageID, in)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	h.hub.BroadcastToRoom(c.Request.Context(), msg.RoomID, dto.EventMessageEdited, msg)
	SuccessResponse(c, http.StatusOK, msg)
}

func (h *ChatHandler) Delete(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	messageID, ok := pathID(c, "messageId")
	if !ok {
		return
	}
	msg, err := h.chatService.DeleteMessage(c.Request.Context(), user.ID, messageID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	h.hub.BroadcastToRoom(c.Request.Context(), msg.RoomID, dto.EventMessageDeleted, dto.MessageDeletedPayload{
		MessageID: messageID, DeletedBy: user.ID,
	})
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Message deleted successfully"})
}

// React toggles the caller's emoji on a message.
func (h *ChatHandler) React(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	messageID, ok := pathID(c, "messageId")
	if !ok {
		return
	}
	var in service.ReactionInput
	if !bindJSON(c, &in) {
		return
	}
	msg, added, err := h.chatService.ToggleReaction(c.Request.Context(), user, messageID, in)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	h.hub.BroadcastToRoom(c.Request.Context(), msg.RoomID, dto.EventMessageReaction, msg)
	SuccessResponse(c, http.StatusOK, gin.H{"message": msg, "added": added})
}
