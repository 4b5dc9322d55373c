package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/middleware"
	"github.com/ayushanand27/xhire/internal/repository"
	"github.com/ayushanand27/xhire/internal/validation"
)

var timeNow = time.Now

// Broadcaster pushes REST-side changes to the room's live connections.
type Broadcaster interface {
	BroadcastToRoom(ctx context.Context, roomID uint, event string, payload any)
	DisconnectUser(ctx context.Context, roomID, userID uint)
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastToRoom(context.Context, uint, string, any) {}
func (noopBroadcaster) DisconnectUser(context.Context, uint, uint) {}

func orNoop(b Broadcaster) Broadcaster {
	if b == nil {
		return noopBroadcaster{}
	}
	return b
}

// currentUser returns the authenticated caller or answers 401.
func currentUser(c *gin.Context) (*domain.User, bool) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		logrus.WithField("route", c.FullPath()).Warn("User not found in context, auth middleware missing?")
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return nil, false
	}
	return u, true
}

// pathID parses a numeric path parameter or answers 400.
func pathID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// bindJSON decodes and validates the body or answers 400.
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": validation.Describe(err)})
		return false
	}
	return true
}

func pageFrom(c *gin.Context) repository.Page {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return repository.Page{Page: page, Limit: limit}.Normalize()
}
