package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AuthHandler exposes the caller's provisioned account. Sign-in itself happens at
// the identity provider.
type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	SuccessResponse(c, http.StatusOK, user)
}
