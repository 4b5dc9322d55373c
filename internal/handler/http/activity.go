package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/service"
)

type ActivityHandler struct {
	activityService *service.ActivityService
}

func NewActivityHandler(activityService *service.ActivityService) *ActivityHandler {
	if activityService == nil {
		panic("ActivityService cannot be nil for ActivityHandler")
	}
	return &ActivityHandler{activityService: activityService}
}

// Log handles POST /rooms/:roomId/activity.
func (h *ActivityHandler) Log(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	var in service.LogActivityInput
	if !bindJSON(c, &in) {
		return
	}
	rec, err := h.activityService.Log(c.Request.Context(), user, roomID, in)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, rec)
}

// RoomFeed handles GET /rooms/:roomId/activity and /rooms/:roomId/activity/type/:eventType.
func (h *ActivityHandler) RoomFeed(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	eventType := c.Param("eventType")
	if eventType == "" {
		eventType = c.Query("eventType")
	}
	page := pageFrom(c)
	records, total, err := h.activityService.RoomFeed(c.Request.Context(), user.ID, roomID, domain.ActivityType(eventType), page)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	PagedResponse(c, http.StatusOK, "activities", records, page.Page, page.Limit, total)
}

// UserFeed handles GET /users/:userId/activity.
func (h *ActivityHandler) UserFeed(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	page := pageFrom(c)
	records, total, err := h.activityService.UserFeed(c.Request.Context(), user.ID, userID, page)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	PagedResponse(c, http.StatusOK, "activities", records, page.Page, page.Limit, total)
}

// Stats handles GET /rooms/:roomId/activity/stats.
func (h *ActivityHandler) Stats(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	stats, err := h.activityService.Stats(c.Request.Context(), user.ID, roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, stats)
}
