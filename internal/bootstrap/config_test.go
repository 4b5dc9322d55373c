package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", ":memory:")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "127.0.0.1:6379", cfg.RedisAddr)
	assert.Equal(t, "xhire:", cfg.RedisKeyPrefix)
	assert.Equal(t, 100, cfg.RateLimitMax)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 5, cfg.DefaultMaxParticipants)
	assert.Equal(t, 30.0, cfg.WSEventsPerSecond)
	assert.Equal(t, 30*24*time.Hour, cfg.InactiveRoomRetention)
	assert.Equal(t, 3*time.Minute, cfg.PresenceStaleAfter)
	assert.False(t, cfg.VideoEnabled())
}

func TestLoadConfig_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_USER", "xhire")
	t.Setenv("DB_NAME", "xhire")
	t.Setenv("RATE_LIMIT_WINDOW", "30")
	t.Setenv("INACTIVE_ROOM_RETENTION", "72h")
	t.Setenv("STREAM_API_KEY", "key")
	t.Setenv("STREAM_API_SECRET", "secret")
	t.Setenv("LOG_LEVEL", "verbose")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "5432", cfg.DBPort)
	assert.Equal(t, 30*time.Second, cfg.RateLimitWindow)
	assert.Equal(t, 72*time.Hour, cfg.InactiveRoomRetention)
	assert.True(t, cfg.VideoEnabled())
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"missing jwt secret", "JWT_SECRET", ""},
		{"short jwt secret", "JWT_SECRET", "short"},
		{"unknown driver", "DB_DRIVER", "oracle"},
		{"bad integer", "RATE_LIMIT_MAX", "many"},
		{"bad duration", "EXECUTION_TIMEOUT", "soon"},
		{"capacity too large", "DEFAULT_MAX_PARTICIPANTS", "500"},
		{"half of stream credentials", "STREAM_API_KEY", "key"},
		{"presence window shorter than a ping", "PRESENCE_STALE_AFTER", "30s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(cors("http://app.example"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://app.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
