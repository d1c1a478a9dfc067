package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"admin-panel/internal/domain"
	"admin-panel/internal/service"
)

const identityKey = "auth_identity"

// RouteGuardMiddleware deja pasar solo con sesion autenticada y guarda la identidad en el contexto.
func RouteGuardMiddleware(guard *service.RouteGuard) gin.HandlerFunc {
	return func(c *gin.Context) {
		if guard == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "guard not configured"})
			c.Abort()
			return
		}

		switch view := guard.Decide(); view {
		case service.ViewLoading:
			c.Header("Retry-After", "1")
			c.JSON(http.StatusServiceUnavailable, gin.H{"view": view})
			c.Abort()
			return
		case service.ViewChallenge:
			pending, _ := guard.Pending()
			c.JSON(http.StatusUnauthorized, gin.H{"view": view, "pending": pending})
			c.Abort()
			return
		case service.ViewCredentials:
			c.JSON(http.StatusUnauthorized, gin.H{"view": view})
			c.Abort()
			return
		}

		identity, ok := guard.Identity()
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"view": service.ViewCredentials})
			c.Abort()
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// GetIdentity obtiene la identidad autenticada desde el contexto.
func GetIdentity(c *gin.Context) (domain.Identity, bool) {
	val, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := val.(domain.Identity)
	return identity, ok
}
