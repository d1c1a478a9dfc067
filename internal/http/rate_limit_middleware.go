package http

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"admin-panel/internal/service"
)

// AttemptLimitMiddleware limita por ip y accion los endpoints que llegan al servicio remoto.
func AttemptLimitMiddleware(limiter service.AttemptLimiter, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		ok, retryAfter := limiter.Allow(c.Request.Context(), c.ClientIP()+"|"+action)
		if !ok {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
