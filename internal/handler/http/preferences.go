package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/service"
)

type PreferencesHandler struct {
	prefsService *service.PreferencesService
}

func NewPreferencesHandler(prefsService *service.PreferencesService) *PreferencesHandler {
	if prefsService == nil {
		panic("PreferencesService cannot be nil for PreferencesHandler")
	}
	return &PreferencesHandler{prefsService: prefsService}
}

type favoriteRequest struct {
	RoomID uint `json:"roomId" validate:"required"`
}

type blockRequest struct {
	UserID uint `json:"userId" validate:"required"`
}

// Get handles GET /users/preferences.
func (h *PreferencesHandler) Get(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	prefs, err := h.prefsService.Get(c.Request.Context(), user.ID)
	h.respond(c, prefs, err)
}

// Update handles PUT /users/preferences.
func (h *PreferencesHandler) Update(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var patch domain.PreferencesPatch
	if !bindJSON(c, &patch) {
		return
	}
	prefs, err := h.prefsService.Update(c.Request.Context(), user.ID, patch)
	h.respond(c, prefs, err)
}

// Favorites handles GET /users/favorites.
func (h *PreferencesHandler) Favorites(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	rooms, err := h.prefsService.Favorites(c.Request.Context(), user.ID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"favoritedRooms": rooms})
}

// AddFavorite handles POST /users/favorites.
func (h *PreferencesHandler) AddFavorite(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req favoriteRequest
	if !bindJSON(c, &req) {
		return
	}
	prefs, err := h.prefsService.AddFavorite(c.Request.Context(), user.ID, req.RoomID)
	h.respond(c, prefs, err)
}

// RemoveFavorite handles DELETE /users/favorites/:roomId.
func (h *PreferencesHandler) RemoveFavorite(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	prefs, err := h.prefsService.RemoveFavorite(c.Request.Context(), user.ID, roomID)
	h.respond(c, prefs, err)
}

// Blocked handles GET /users/blocked.
func (h *PreferencesHandler) Blocked(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	users, err := h.prefsService.BlockedUsers(c.Request.Context(), user.ID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"blockedUsers": users})
}

// Block handles POST /users/blocked.
func (h *PreferencesHandler) Block(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req blockRequest
	if !bindJSON(c, &req) {
		return
	}
	prefs, err := h.prefsService.Block(c.Request.Context(), user.ID, req.UserID)
	h.respond(c, prefs, err)
}

// Unblock handles DELETE /users/blocked/:userId.
func (h *PreferencesHandler) Unblock(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	targetID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	prefs, err := h.prefsService.Unblock(c.Request.Context(), user.ID, targetID)
	h.respond(c, prefs, err)
}

func (h *PreferencesHandler) respond(c *gin.Context, prefs *domain.UserPreferences, err error) {
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, prefs)
}
