package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/dto"
	"github.com/ayushanand27/xhire/internal/hub"
	"github.com/ayushanand27/xhire/internal/middleware"
	"github.com/ayushanand27/xhire/internal/service"
)

type gateFunc func(ctx context.Context, roomID, userID uint) (*domain.Room, error)

func (f gateFunc) ConnectableRoom(ctx context.Context, roomID, userID uint) (*domain.Room, error) {
	return f(ctx, roomID, userID)
}

type nopRouter struct{}

func (nopRouter) HandleEvent(context.Context, service.EventContext, []byte) ([]service.Dispatch, error) {
	return nil, nil
}

type nopLifecycle struct{}

func (nopLifecycle) Connect(context.Context, uint, uint, string) (int64, error) { return 1, nil }

func (nopLifecycle) Heartbeat(context.Context, uint, uint, string) error { return nil }

func (nopLifecycle) Disconnect(context.Context, uint, uint, string) (*service.Departure, error) {
	return &service.Departure{}, nil
}

func newServer(t *testing.T, gate RoomGate, withUser bool) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := hub.NewHub(nopRouter{}, nopLifecycle{}, nil, hub.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		h.Wait()
	})

	r := gin.New()
	if withUser {
		r.Use(func(c *gin.Context) {
			u := &domain.User{ID: 7, Name: "alice"}
			c.Set(middleware.ContextUserID, u.ID)
			c.Set(middleware.ContextUser, u)
		})
	}
	r.GET("/ws/rooms/:roomId", NewWebSocketHandler(h, gate, "*").HandleConnection)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func allowAll(context.Context, uint, uint) (*domain.Room, error) { return &domain.Room{}, nil }

func TestHandleConnection_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		gate     gateFunc
		withUser bool
		path     string
		status   int
	}{
		{"no identity", allowAll, false, "/ws/rooms/1", http.StatusUnauthorized},
		{"bad room id", allowAll, true, "/ws/rooms/zero", http.StatusUnauthorized},
		{"room missing", func(context.Context, uint, uint) (*domain.Room, error) {
			return nil, service.ErrRoomNotFound
		}, true, "/ws/rooms/1", http.StatusNotFound},
		{"not a participant", func(context.Context, uint, uint) (*domain.Room, error) {
			return nil, service.ErrNotParticipant
		}, true, "/ws/rooms/1", http.StatusForbidden},
		{"room inactive", func(context.Context, uint, uint) (*domain.Room, error) {
			return nil, service.ErrRoomInactive
		}, true, "/ws/rooms/1", http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.gate, tt.withUser)

			conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, tt.path), nil)
			if conn != nil {
				conn.Close()
			}
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestHandleConnection_JoinAnnounced(t *testing.T) {
	var gotRoom, gotUser uint
	srv := newServer(t, gateFunc(func(_ context.Context, roomID, userID uint) (*domain.Room, error) {
		gotRoom, gotUser = roomID, userID
		return &domain.Room{ID: roomID}, nil
	}), true)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/rooms/42"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var env struct {
		Type    string              `json:"type"`
		Payload dto.PresencePayload `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, dto.EventParticipantJoined, env.Type)
	assert.Equal(t, uint(7), env.Payload.UserID)
	assert.Equal(t, uint(42), gotRoom)
	assert.Equal(t, uint(7), gotUser)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker("https://app.example, https://admin.example/")
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}
	assert.True(t, check(req("https://app.example")))
	assert.True(t, check(req("https://admin.example")))
	assert.True(t, check(req("")))
	assert.False(t, check(req("https://evil.example")))
	assert.True(t, originChecker("*")(req("https://evil.example")))
}
