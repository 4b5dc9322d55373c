package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type authFunc func(ctx context.Context, token string) (*domain.User, error)

func (f authFunc) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	return f(ctx, token)
}

func okAuth(want string) authFunc {
	return func(_ context.Context, token string) (*domain.User, error) {
		if token != want {
			return nil, service.ErrAuthenticationFailed
		}
		u := &domain.User{Name: "alice"}
		u.ID = 7
		return u, nil
	}
}

func authRouter(a Authenticator) *gin.Engine {
	r := gin.New()
	r.Use(Auth(a))
	r.GET("/me", func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": c.MustGet(ContextUserID), "name": u.Name})
	})
	return r
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name   string
		target string
		header string
		auth   Authenticator
		status int
	}{
		{"bearer header", "/me", "Bearer good", okAuth("good"), http.StatusOK},
		{"query token", "/me?token=good", "", okAuth("good"), http.StatusOK},
		{"missing token", "/me", "", okAuth("good"), http.StatusUnauthorized},
		{"malformed header", "/me", "Token good", okAuth("good"), http.StatusUnauthorized},
		{"rejected token", "/me", "Bearer bad", okAuth("good"), http.StatusUnauthorized},
		{"provisioning failure", "/me", "Bearer good", authFunc(func(context.Context, string) (*domain.User, error) {
			return nil, errors.New("db down")
		}), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			authRouter(tt.auth).ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"id":7,"name":"alice"}`, w.Body.String())
			}
		})
	}
}

type fixedLimiter struct {
	allowed bool
	count   int64
	err     error
}

func (l fixedLimiter) Allow(context.Context, string, int, time.Duration) (bool, int64, error) {
	return l.allowed, l.count, l.err
}

func TestRateLimit(t *testing.T) {
	serve := func(l Limiter) *httptest.ResponseRecorder {
		r := gin.New()
		r.Use(RateLimit(l, 10, time.Minute))
		r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		return w
	}

	t.Run("within limit", func(t *testing.T) {
		w := serve(fixedLimiter{allowed: true, count: 3})
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "7", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("over limit", func(t *testing.T) {
		w := serve(fixedLimiter{allowed: false, count: 11})
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, "60", w.Header().Get("Retry-After"))
	})

	t.Run("store down fails open", func(t *testing.T) {
		w := serve(fixedLimiter{err: errors.New("redis down")})
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestLoggerMiddleware_RequestID(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	r := gin.New()
	r.Use(LoggerMiddleware(log))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
}
