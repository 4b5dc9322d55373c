package websocket

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ayushanand27/xhire/internal/domain"
	httpHandler "github.com/ayushanand27/xhire/internal/handler/http"
	"github.com/ayushanand27/xhire/internal/hub"
	"github.com/ayushanand27/xhire/internal/middleware"
)

// RoomGate decides whether a user may open a realtime connection to a room.
type RoomGate interface {
	ConnectableRoom(ctx context.Context, roomID, userID uint) (*domain.Room, error)
}

// WebSocketHandler checks the handshake and hands upgraded connections to the hub.
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
	rooms    RoomGate
}

// NewWebSocketHandler builds the handler. allowedOrigins is a comma-separated list;
// "*" or empty accepts any origin.
func NewWebSocketHandler(h *hub.Hub, rooms RoomGate, allowedOrigins string) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	if rooms == nil {
		panic("RoomGate cannot be nil for WebSocketHandler")
	}
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		hub:   h,
		rooms: rooms,
	}
}

func originChecker(allowed string) func(r *http.Request) bool {
	allowed = strings.TrimSpace(allowed)
	if allowed == "" || allowed == "*" {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool)
	for _, o := range strings.Split(allowed, ",") {
		set[strings.TrimRight(strings.TrimSpace(o), "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[strings.TrimRight(origin, "/")]
	}
}

// HandleConnection serves GET /ws/rooms/:roomId. Every rejection happens before
// the upgrade, as a plain HTTP error.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	logCtx := logrus.WithField("user_id", user.ID)

	roomID, err := strconv.ParseUint(c.Param("roomId"), 10, 32)
	if err != nil || roomID == 0 {
		logCtx.WithField("room_param", c.Param("roomId")).Warn("WS Handler: Invalid room ID")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	logCtx = logCtx.WithField("room_id", roomID)

	if _, err := h.rooms.ConnectableRoom(c.Request.Context(), uint(roomID), user.ID); err != nil {
		logCtx.WithError(err).Info("WS Handler: Handshake rejected")
		httpHandler.HandleServiceError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logCtx.WithError(err).Warn("WS Handler: Failed to upgrade connection")
		return
	}

	client := hub.NewClient(h.hub, conn, uint(roomID), user.ID, user.DisplayName())
	if !h.hub.Register(client) {
		logCtx.Warn("WS Handler: Hub stopped, closing connection")
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		_ = conn.Close()
		return
	}
	client.Run()
	logCtx.WithField("conn_id", client.ID()).Info("WS Handler: Client connected")
}
