package http

import (
	"github.com/gin-gonic/gin"

	"github.com/ayushanand27/xhire/internal/dto"
)

func ErrorResponse(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

func SuccessResponse(c *gin.Context, code int, data interface{}) {
	c.JSON(code, data)
}

// PagedResponse wraps a list under key with its page metadata.
func PagedResponse(c *gin.Context, code int, key string, items interface{}, page, limit int, total int64) {
	c.JSON(code, gin.H{key: items, "pagination": dto.NewPagination(page, limit, total)})
}
