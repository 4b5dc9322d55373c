package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ayushanand27/xhire/internal/service"
)

var kindStatus = map[service.ErrorKind]int{
	service.KindNotFound:         http.StatusNotFound,
	service.KindPermissionDenied: http.StatusForbidden,
	service.KindInvalidArgument:  http.StatusBadRequest,
	service.KindConflict:         http.StatusConflict,
	service.KindUnavailable:      http.StatusServiceUnavailable,
	service.KindUnauthenticated:  http.StatusUnauthorized,
	service.KindInternal:         http.StatusInternalServerError,
}

// StatusFor maps a service error to its HTTP status.
func StatusFor(err error) int {
	if code, ok := kindStatus[service.KindOf(err)]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// HandleServiceError writes the response for a failed service call. Internal
// failures are logged and answered with a generic message.
func HandleServiceError(c *gin.Context, err error) {
	kind := service.KindOf(err)
	if kind == service.KindInternal {
		logrus.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"route":  c.FullPath(),
		}).WithError(err).Error("Unhandled internal server error")
	}
	c.AbortWithStatusJSON(StatusFor(err), gin.H{"error": service.PublicMessage(err), "code": kind})
}
