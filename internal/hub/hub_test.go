package hub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushanand27/xhire/internal/dto"
	"github.com/ayushanand27/xhire/internal/service"
)

type fakeRouter struct {
	mu     sync.Mutex
	seen   []service.EventContext
	result []service.Dispatch
	err    error
}

func (r *fakeRouter) HandleEvent(_ context.Context, ec service.EventContext, _ []byte) ([]service.Dispatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, ec)
	return r.result, r.err
}

type fakeLifecycle struct {
	mu          sync.Mutex
	connects    []uint
	heartbeats  []string
	disconnects []uint
	departure   *service.Departure
}

func (l *fakeLifecycle) Connect(_ context.Context, _ uint, userID uint, _ string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connects = append(l.connects, userID)
	return 1, nil
}

func (l *fakeLifecycle) Heartbeat(_ context.Context, _ uint, _ uint, connID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.heartbeats = append(l.heartbeats, connID)
	return nil
}

func (l *fakeLifecycle) Disconnect(_ context.Context, _ uint, userID uint, _ string) (*service.Departure, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.disconnects = append(l.disconnects, userID)
	if l.departure != nil {
		return l.departure, nil
	}
	return &service.Departure{Departed: true, Removed: true}, nil
}

type fakeFanout struct {
	mu        sync.Mutex
	published []dto.FanoutMessage
}

func (f *fakeFanout) Publish(_ context.Context, msg dto.FanoutMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeFanout) Subscribe(ctx context.Context, _ func(dto.FanoutMessage)) error {
	<-ctx.Done()
	return nil
}

func (f *fakeFanout) messages() []dto.FanoutMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dto.FanoutMessage(nil), f.published...)
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func startHub(t *testing.T, router Router, lc Lifecycle, fanout Fanout) *Hub {
	t.Helper()
	h := NewHub(router, lc, fanout, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		h.Wait()
	})
	return h
}

// join registers a connection-less client and waits for its own join notice.
func join(t *testing.T, h *Hub, roomID, userID uint) *Client {
	t.Helper()
	c := NewClient(h, nil, roomID, userID, "")
	require.True(t, h.Register(c))
	f := nextFrame(t, c)
	require.Equal(t, dto.EventParticipantJoined, f.Type)
	return c
}

func nextFrame(t *testing.T, c *Client) frame {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var f frame
		require.NoError(t, json.Unmarshal(data, &f))
		return f
	case <-time.After(2 * time.Second):
		t.Fatalf("no frame for user %d", c.userID)
		return frame{}
	}
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected frame for user %d: %s", c.userID, data)
	case <-time.After(50 * time.Millisecond):
	}
}

func assertClosed(t *testing.T, c *Client) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-c.send:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("send channel of user %d still open", c.userID)
		}
	}
}

func TestHub_RegisterAnnouncesJoinToRoom(t *testing.T) {
	lc := &fakeLifecycle{}
	h := startHub(t, &fakeRouter{}, lc, nil)

	alice := join(t, h, 5, 1)
	bob := join(t, h, 5, 2)
	other := join(t, h, 6, 3)

	f := nextFrame(t, alice)
	assert.Equal(t, dto.EventParticipantJoined, f.Type)
	var p dto.PresencePayload
	require.NoError(t, json.Unmarshal(f.Payload, &p))
	assert.Equal(t, uint(2), p.UserID)
	assert.False(t, p.Timestamp.IsZero())

	assertNoFrame(t, bob)
	assertNoFrame(t, alice)
	assertNoFrame(t, other)
	assert.Equal(t, 2, h.RoomConnections(5))
	assert.Equal(t, 1, h.RoomConnections(6))
}

func TestHub_DispatchScopes(t *testing.T) {
	router := &fakeRouter{}
	h := startHub(t, router, &fakeLifecycle{}, nil)

	alice := join(t, h, 5, 1)
	bob := join(t, h, 5, 2)
	nextFrame(t, alice) // bob joined
	outsider := join(t, h, 6, 3)

	router.result = []service.Dispatch{
		{Scope: service.ScopeSender, Event: "to-sender"},
		{Scope: service.ScopeOthers, Event: "to-others"},
		{Scope: service.ScopeRoom, Event: "to-room"},
	}
	h.dispatch(alice, []byte(`{"type":"anything"}`))

	assert.Equal(t, "to-sender", nextFrame(t, alice).Type)
	assert.Equal(t, "to-room", nextFrame(t, alice).Type)
	assert.Equal(t, "to-others", nextFrame(t, bob).Type)
	assert.Equal(t, "to-room", nextFrame(t, bob).Type)
	assertNoFrame(t, alice)
	assertNoFrame(t, bob)
	assertNoFrame(t, outsider)

	require.Len(t, router.seen, 1)
	assert.Equal(t, service.EventContext{RoomID: 5, UserID: 1, ConnID: alice.ID()}, router.seen[0])
}

func TestHub_FailedEventRepliesToSenderOnly(t *testing.T) {
	router := &fakeRouter{
		result: []service.Dispatch{{Scope: service.ScopeSender, Event: dto.EventPermissionDenied,
			Payload: dto.PermissionDeniedPayload{Message: "You do not have permission to edit code"}}},
		err: service.ErrPermissionDenied,
	}
	h := startHub(t, router, &fakeLifecycle{}, nil)

	alice := join(t, h, 5, 1)
	bob := join(t, h, 5, 2)
	nextFrame(t, alice)

	h.dispatch(bob, []byte(`{"type":"code-updated"}`))

	f := nextFrame(t, bob)
	assert.Equal(t, dto.EventPermissionDenied, f.Type)
	assert.JSONEq(t, `{"message":"You do not have permission to edit code"}`, string(f.Payload))
	assertNoFrame(t, alice)
	assert.Equal(t, 2, h.RoomConnections(5), "connection stays open")
}

func TestHub_UnregisterAnnouncesDeparture(t *testing.T) {
	lc := &fakeLifecycle{}
	h := startHub(t, &fakeRouter{}, lc, nil)

	alice := join(t, h, 5, 1)
	bob := join(t, h, 5, 2)
	nextFrame(t, alice)

	h.unregister(bob)

	assertClosed(t, bob)
	f := nextFrame(t, alice)
	assert.Equal(t, dto.EventParticipantLeft, f.Type)
	var p dto.PresencePayload
	require.NoError(t, json.Unmarshal(f.Payload, &p))
	assert.Equal(t, uint(2), p.UserID)
	assert.Equal(t, 1, h.RoomConnections(5))

	lc.mu.Lock()
	assert.Equal(t, []uint{2}, lc.disconnects)
	lc.mu.Unlock()
}

func TestHub_ClosingAnExtraConnectionIsSilent(t *testing.T) {
	lc := &fakeLifecycle{departure: &service.Departure{OpenConnections: 1}}
	h := startHub(t, &fakeRouter{}, lc, nil)

	alice := join(t, h, 5, 1)
	tab1 := join(t, h, 5, 2)
	nextFrame(t, alice)
	tab2 := join(t, h, 5, 2)
	nextFrame(t, alice)
	nextFrame(t, tab1)

	h.unregister(tab2)

	assertClosed(t, tab2)
	assertNoFrame(t, alice)
	assertNoFrame(t, tab1)
}

func TestHub_UnregisterTwiceDisconnectsOnce(t *testing.T) {
	lc := &fakeLifecycle{}
	h := startHub(t, &fakeRouter{}, lc, nil)

	alice := join(t, h, 5, 1)
	h.unregister(alice)
	h.unregister(alice)
	assertClosed(t, alice)

	require.Eventually(t, func() bool {
		lc.mu.Lock()
		defer lc.mu.Unlock()
		return len(lc.disconnects) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, h.RoomConnections(5))
}

func TestHub_HeartbeatOnlyForRecordedConnections(t *testing.T) {
	lc := &fakeLifecycle{}
	h := startHub(t, &fakeRouter{}, lc, nil)

	pending := NewClient(h, nil, 5, 1, "")
	h.heartbeat(pending)

	alice := join(t, h, 5, 1)
	select {
	case <-alice.attached:
	case <-time.After(2 * time.Second):
		t.Fatal("connection never recorded")
	}
	h.heartbeat(alice)

	lc.mu.Lock()
	defer lc.mu.Unlock()
	assert.Equal(t, []string{alice.ID()}, lc.heartbeats)
}

func TestHub_FanoutPublishesAndDeliversRemoteFrames(t *testing.T) {
	fanout := &fakeFanout{}
	router := &fakeRouter{result: []service.Dispatch{{Scope: service.ScopeOthers, Event: dto.EventCodeUpdated}}}
	h := startHub(t, router, &fakeLifecycle{}, fanout)

	alice := join(t, h, 5, 1)
	h.dispatch(alice, []byte(`{"type":"code-updated"}`))

	var relayed *dto.FanoutMessage
	for _, m := range fanout.messages() {
		if m.ExcludeConn == alice.ID() {
			m := m
			relayed = &m
		}
	}
	require.NotNil(t, relayed)
	assert.Equal(t, uint(5), relayed.RoomID)
	assertNoFrame(t, alice)

	// A frame from another process reaches local members except the excluded one.
	h.handleRemote(dto.FanoutMessage{Node: "other", RoomID: 5, Data: []byte(`{"type":"cursor-position","payload":{}}`)})
	assert.Equal(t, dto.EventCursorPosition, nextFrame(t, alice).Type)

	h.handleRemote(dto.FanoutMessage{Node: "other", RoomID: 5, ExcludeConn: alice.ID(), Data: []byte(`{"type":"x"}`)})
	assertNoFrame(t, alice)

	// Own messages coming back over pub/sub are ignored.
	h.handleRemote(dto.FanoutMessage{Node: h.node, RoomID: 5, Data: []byte(`{"type":"x"}`)})
	assertNoFrame(t, alice)
}

func TestHub_DisconnectUser(t *testing.T) {
	fanout := &fakeFanout{}
	h := startHub(t, &fakeRouter{}, &fakeLifecycle{}, fanout)

	alice := join(t, h, 5, 1)
	bob := join(t, h, 5, 2)
	nextFrame(t, alice)

	h.DisconnectUser(context.Background(), 5, 2)

	assertClosed(t, bob)
	assert.Equal(t, dto.EventParticipantLeft, nextFrame(t, alice).Type)

	var relayed bool
	for _, m := range fanout.messages() {
		if m.DisconnectUser == 2 && m.RoomID == 5 {
			relayed = true
		}
	}
	assert.True(t, relayed)
}

func TestHub_RemoteDisconnect(t *testing.T) {
	h := startHub(t, &fakeRouter{}, &fakeLifecycle{}, nil)

	bob := join(t, h, 5, 2)
	h.handleRemote(dto.FanoutMessage{Node: "other", RoomID: 5, DisconnectUser: 2})

	assertClosed(t, bob)
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	lc := &fakeLifecycle{}
	h := NewHub(&fakeRouter{}, lc, nil, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	alice := join(t, h, 5, 1)
	cancel()
	<-stopped
	h.Wait()

	assertClosed(t, alice)
	assert.False(t, h.Register(NewClient(h, nil, 5, 3, "")))
	lc.mu.Lock()
	assert.Equal(t, []uint{1}, lc.disconnects)
	lc.mu.Unlock()
}

func TestClient_TrySendAfterCloseIsRefused(t *testing.T) {
	h := NewHub(&fakeRouter{}, &fakeLifecycle{}, nil, Config{})
	c := NewClient(h, nil, 5, 1, "alice")

	assert.True(t, c.trySend([]byte("x")))
	c.closeSend()
	c.closeSend()
	assert.False(t, c.trySend([]byte("y")))
}

func TestClient_SendBufferFullDropsFrame(t *testing.T) {
	h := NewHub(&fakeRouter{}, &fakeLifecycle{}, nil, Config{})
	c := NewClient(h, nil, 5, 1, "alice")

	for i := 0; i < sendBufferSize; i++ {
		require.True(t, c.trySend([]byte("x")))
	}
	assert.False(t, c.trySend([]byte("overflow")))
}
