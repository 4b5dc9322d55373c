package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ayushanand27/xhire/internal/dto"
	"github.com/ayushanand27/xhire/internal/metrics"
	"github.com/ayushanand27/xhire/internal/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size. Code buffers travel in frames.
	maxMessageSize = 1 << 20

	sendBufferSize = 256
)

// Router turns one inbound frame into the dispatches to deliver.
type Router interface {
	HandleEvent(ctx context.Context, ec service.EventContext, raw []byte) ([]service.Dispatch, error)
}

// Lifecycle is told about every connection that opens and closes, and about each
// keepalive of one that stays open.
type Lifecycle interface {
	Connect(ctx context.Context, roomID, userID uint, connID string) (int64, error)
	Heartbeat(ctx context.Context, roomID, userID uint, connID string) error
	Disconnect(ctx context.Context, roomID, userID uint, connID string) (*service.Departure, error)
}

// Fanout relays room frames to the other server processes.
type Fanout interface {
	Publish(ctx context.Context, msg dto.FanoutMessage) error
	Subscribe(ctx context.Context, handle func(dto.FanoutMessage)) error
}

type Config struct {
	EventsPerSecond float64
	EventBurst      int
	// EventTimeout bounds the handling of a single inbound event.
	EventTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.EventsPerSecond <= 0 {
		c.EventsPerSecond = 30
	}
	if c.EventBurst <= 0 {
		c.EventBurst = 60
	}
	if c.EventTimeout <= 0 {
		c.EventTimeout = 10 * time.Second
	}
	return c
}

type messageType int

const (
	msgRegister messageType = iota
	msgUnregister
)

type hubMessage struct {
	typ    messageType
	client *Client
}

// Hub owns the room -> connection registry of this process. Membership changes
// are serialized through Run; event handling runs on each client's read goroutine.
type Hub struct {
	messageChan chan hubMessage

	// map[roomID]map[*Client]bool
	rooms   map[uint]map[*Client]bool
	roomsMu sync.RWMutex

	router    Router
	lifecycle Lifecycle
	fanout    Fanout
	cfg       Config

	node string
	now  func() time.Time

	// lifecycle calls still in flight
	wg       sync.WaitGroup
	done     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
}

// NewHub builds a hub. fanout may be nil for a single-process deployment.
func NewHub(router Router, lifecycle Lifecycle, fanout Fanout, cfg Config) *Hub {
	if router == nil {
		panic("Router cannot be nil for Hub")
	}
	if lifecycle == nil {
		panic("Lifecycle cannot be nil for Hub")
	}
	return &Hub{
		messageChan: make(chan hubMessage, 512),
		rooms:       make(map[uint]map[*Client]bool),
		router:      router,
		lifecycle:   lifecycle,
		fanout:      fanout,
		cfg:         cfg.withDefaults(),
		node:        uuid.NewString(),
		now:         time.Now,
		done:        make(chan struct{}),
		exited:      make(chan struct{}),
	}
}

// Run processes registrations until ctx is cancelled, then closes every
// connection it still holds. It should run in its own goroutine.
func (h *Hub) Run(ctx context.Context) {
	log := logrus.WithFields(logrus.Fields{"component": "hub", "node": h.node})
	log.Info("Hub is running...")
	defer close(h.exited)

	if h.fanout != nil {
		go func() {
			if err := h.fanout.Subscribe(ctx, h.handleRemote); err != nil {
				log.WithError(err).Error("Fan-out subscription ended; broadcasts stay local to this process")
			}
		}()
	}

	for {
		select {
		case msg := <-h.messageChan:
			switch msg.typ {
			case msgRegister:
				h.registerClient(msg.client)
			case msgUnregister:
				h.unregisterClient(msg.client)
			}
		case <-ctx.Done():
			h.stopOnce.Do(func() { close(h.done) })
			h.closeAll()
			log.Info("Hub is shutting down...")
			return
		}
	}
}

// Register hands a freshly upgraded client to the hub. It returns false once the
// hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.messageChan <- hubMessage{typ: msgRegister, client: c}:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(c *Client) {
	select {
	case h.messageChan <- hubMessage{typ: msgUnregister, client: c}:
	case <-h.done:
	}
}

// Wait blocks until Run has returned and every connect/disconnect callback has
// finished. Call it only after starting Run.
func (h *Hub) Wait() {
	<-h.exited
	h.wg.Wait()
}

func (h *Hub) registerClient(c *Client) {
	if c == nil {
		logrus.Error("Hub: Attempted to register a nil client")
		return
	}
	logCtx := c.logger().WithField("action", "registerClient")

	h.roomsMu.Lock()
	if _, ok := h.rooms[c.roomID]; !ok {
		h.rooms[c.roomID] = make(map[*Client]bool)
		metrics.ActiveRooms.Inc()
	}
	h.rooms[c.roomID][c] = true
	h.roomsMu.Unlock()
	metrics.WSConnections.Inc()
	logCtx.Info("Client registered to Hub")

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer close(c.attached)
		if _, err := h.lifecycle.Connect(context.Background(), c.roomID, c.userID, c.id); err != nil {
			logCtx.WithError(err).Error("Failed to record connection")
		}
		h.broadcast(c.roomID, dto.EventParticipantJoined, dto.PresencePayload{UserID: c.userID, Timestamp: h.now()})
	}()
}

func (h *Hub) unregisterClient(c *Client) {
	if c == nil {
		return
	}
	logCtx := c.logger().WithField("action", "unregisterClient")

	h.roomsMu.Lock()
	roomClients, ok := h.rooms[c.roomID]
	if !ok || !roomClients[c] {
		h.roomsMu.Unlock()
		return
	}
	delete(roomClients, c)
	if len(roomClients) == 0 {
		delete(h.rooms, c.roomID)
		metrics.ActiveRooms.Dec()
	}
	h.roomsMu.Unlock()
	metrics.WSConnections.Dec()
	c.closeSend()
	logCtx.Info("Client unregistered from Hub")

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		// Connect must land before the matching Disconnect.
		<-c.attached
		dep, err := h.lifecycle.Disconnect(context.Background(), c.roomID, c.userID, c.id)
		if err != nil {
			logCtx.WithError(err).Error("Failed to process departure")
			return
		}
		if dep != nil && dep.Departed {
			h.broadcast(c.roomID, dto.EventParticipantLeft, dto.PresencePayload{UserID: c.userID, Timestamp: h.now()})
		}
	}()
}

// heartbeat refreshes c's presence. It does nothing until Connect has landed.
func (h *Hub) heartbeat(c *Client) {
	select {
	case <-c.attached:
	default:
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := h.lifecycle.Heartbeat(ctx, c.roomID, c.userID, c.id); err != nil {
		c.logger().WithError(err).Warn("Failed to refresh presence")
	}
}

func (h *Hub) closeAll() {
	h.roomsMu.RLock()
	var all []*Client
	for _, roomClients := range h.rooms {
		for c := range roomClients {
			all = append(all, c)
		}
	}
	h.roomsMu.RUnlock()

	for _, c := range all {
		h.unregisterClient(c)
		c.closeConn()
	}
}

// dispatch handles one inbound frame from c and delivers the results.
func (h *Hub) dispatch(c *Client, raw []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.EventTimeout)
	defer cancel()

	out, err := h.router.HandleEvent(ctx, c.eventContext(), raw)
	if err != nil {
		c.logger().WithError(err).Debug("Event produced an error reply")
	}
	for _, d := range out {
		data, err := json.Marshal(d.Envelope())
		if err != nil {
			c.logger().WithError(err).WithField("event", d.Event).Error("Failed to marshal outbound event")
			continue
		}
		switch d.Scope {
		case service.ScopeSender:
			if !c.trySend(data) {
				c.logger().WithField("event", d.Event).Warn("Client send channel full, reply dropped")
			}
		case service.ScopeRoom:
			h.deliver(ctx, c.roomID, data, "")
		case service.ScopeOthers:
			h.deliver(ctx, c.roomID, data, c.id)
		}
	}
}

// BroadcastToRoom sends an event to every connection of the room on every process.
func (h *Hub) BroadcastToRoom(ctx context.Context, roomID uint, event string, payload any) {
	data, err := json.Marshal(dto.OutboundEnvelope{Type: event, Payload: payload})
	if err != nil {
		logrus.WithFields(logrus.Fields{"room_id": roomID, "event": event}).WithError(err).Error("Failed to marshal broadcast")
		return
	}
	h.deliver(ctx, roomID, data, "")
}

func (h *Hub) broadcast(roomID uint, event string, payload any) {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	h.BroadcastToRoom(ctx, roomID, event, payload)
}

// DisconnectUser closes every connection the user holds to the room, on every process.
func (h *Hub) DisconnectUser(ctx context.Context, roomID, userID uint) {
	h.disconnectLocal(roomID, userID)
	if h.fanout == nil {
		return
	}
	msg := dto.FanoutMessage{Node: h.node, RoomID: roomID, DisconnectUser: userID}
	if err := h.fanout.Publish(ctx, msg); err != nil {
		logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID}).WithError(err).Warn("Failed to relay disconnect")
	}
}

// RoomConnections counts this process's connections to the room.
func (h *Hub) RoomConnections(roomID uint) int {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) deliver(ctx context.Context, roomID uint, data []byte, excludeConn string) {
	h.deliverLocal(roomID, data, excludeConn)
	if h.fanout == nil {
		return
	}
	msg := dto.FanoutMessage{Node: h.node, RoomID: roomID, ExcludeConn: excludeConn, Data: data}
	if err := h.fanout.Publish(ctx, msg); err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Warn("Fan-out publish failed; delivered locally only")
	}
}

func (h *Hub) deliverLocal(roomID uint, data []byte, excludeConn string) {
	h.roomsMu.RLock()
	roomClients := h.rooms[roomID]
	recipients := make([]*Client, 0, len(roomClients))
	for c := range roomClients {
		if c.id != excludeConn {
			recipients = append(recipients, c)
		}
	}
	h.roomsMu.RUnlock()

	for _, c := range recipients {
		if !c.trySend(data) {
			c.logger().Warn("Client send channel full during broadcast, skipping this client")
		}
	}
}

func (h *Hub) disconnectLocal(roomID, userID uint) {
	h.roomsMu.RLock()
	var targets []*Client
	for c := range h.rooms[roomID] {
		if c.userID == userID {
			targets = append(targets, c)
		}
	}
	h.roomsMu.RUnlock()

	for _, c := range targets {
		c.logger().Info("Closing connection of removed participant")
		h.unregister(c)
		c.closeConn()
	}
}

func (h *Hub) handleRemote(msg dto.FanoutMessage) {
	if msg.Node == h.node {
		return
	}
	if msg.DisconnectUser != 0 {
		h.disconnectLocal(msg.RoomID, msg.DisconnectUser)
		return
	}
	if len(msg.Data) > 0 {
		h.deliverLocal(msg.RoomID, msg.Data, msg.ExcludeConn)
	}
}
