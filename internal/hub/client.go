package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ayushanand27/xhire/internal/dto"
	"github.com/ayushanand27/xhire/internal/service"
)

// Conn is the part of *websocket.Conn the pumps use.
type Conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one socket bound to one room for its whole life.
type Client struct {
	hub      *Hub
	conn     Conn
	id       string
	roomID   uint
	userID   uint
	userName string

	send    chan []byte
	sendMu  sync.Mutex
	closed  bool
	limiter *rate.Limiter

	// closed once the hub has recorded the connection
	attached chan struct{}
}

// NewClient binds an upgraded connection to a room and user. The identifiers are
// fixed here and never taken from frames.
func NewClient(hub *Hub, conn Conn, roomID, userID uint, userName string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		id:       uuid.NewString(),
		roomID:   roomID,
		userID:   userID,
		userName: userName,
		send:     make(chan []byte, sendBufferSize),
		limiter:  rate.NewLimiter(rate.Limit(hub.cfg.EventsPerSecond), hub.cfg.EventBurst),
		attached: make(chan struct{}),
	}
}

// Run starts the read and write goroutines.
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// ReadPump reads frames and handles them one at a time, in arrival order.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister(c)
		c.closeConn()
		c.logger().Info("readPump exited, unregistered client")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger().WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				c.logger().Debug("WebSocket connection closed normally or read error")
			}
			return
		}
		if messageType != websocket.TextMessage {
			c.logger().Debugf("Ignoring non-text message type: %d", messageType)
			continue
		}
		if !c.limiter.Allow() {
			c.reject(service.KindUnavailable, "Too many events, slow down")
			continue
		}
		c.hub.dispatch(c, message)
	}
}

// WritePump drains the send channel to the socket and keeps the connection alive.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConn()
		c.logger().Debug("writePump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger().WithError(err).Warn("Failed to write message to websocket")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger().WithError(err).Debug("Failed to send ping message")
				return
			}
			c.hub.heartbeat(c)
		}
	}
}

func (c *Client) ID() string { return c.id }
func (c *Client) RoomID() uint { return c.roomID }
func (c *Client) UserID() uint { return c.userID }

func (c *Client) eventContext() service.EventContext {
	return service.EventContext{RoomID: c.roomID, UserID: c.userID, UserName: c.userName, ConnID: c.id}
}

// trySend queues a frame without blocking. It reports false when the client is
// closed or its buffer is full.
func (c *Client) trySend(msg []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) closeConn() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) reject(kind service.ErrorKind, message string) {
	data, err := json.Marshal(dto.OutboundEnvelope{
		Type:    dto.EventError,
		Payload: dto.ErrorPayload{Code: string(kind), Message: message},
	})
	if err == nil {
		c.trySend(data)
	}
}

func (c *Client) logger() *logrus.Entry {
	return logrus.WithFields(logrus.Fields{"room_id": c.roomID, "user_id": c.userID, "conn_id": c.id})
}
