package http

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"admin-panel/internal/domain"
	"admin-panel/internal/service"
)

// dashboardScreens son las pantallas que consumen la identidad autenticada.
var dashboardScreens = []string{"products", "orders", "payments", "profile"}

// SessionHandler mantiene dependencias para endpoints de sesion.
type SessionHandler struct {
	logger *zap.Logger
	guard  *service.RouteGuard
}

// NewSessionHandler crea una instancia de SessionHandler.
func NewSessionHandler(logger *zap.Logger, guard *service.RouteGuard) *SessionHandler {
	return &SessionHandler{logger: logger, guard: guard}
}

// GetSession maneja GET /api/session.
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, view := h.guard.Session()
	c.JSON(http.StatusOK, gin.H{"session": session, "view": view})
}

// Login maneja POST /api/login.
func (h *SessionHandler) Login(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ch, err := h.guard.SubmitCredential(c.Request.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyEmail), errors.Is(err, service.ErrMissingIdentity):
			c.JSON(http.StatusBadRequest, gin.H{"error": "email is required", "view": service.ViewCredentials})
		default:
			h.logger.Error("login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start verification"})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"view": service.ViewChallenge, "pending": ch.Pending()})
}

// Logout maneja POST /api/logout.
func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.guard.Logout(c.Request.Context()); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not clear session"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Profile maneja GET /api/profile.
func (h *SessionHandler) Profile(c *gin.Context) {
	identity, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"view": service.ViewCredentials})
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": identity})
}

// Tenant maneja GET /api/tenant.
func (h *SessionHandler) Tenant(c *gin.Context) {
	identity, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"view": service.ViewCredentials})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenant": identity.Tenant()})
}

type screenLink struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Dashboard maneja GET /api/dashboard.
func (h *SessionHandler) Dashboard(c *gin.Context) {
	identity, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"view": service.ViewCredentials})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"greeting": greeting(identity),
		"identity": identity,
		"tenant":   identity.Tenant(),
		"screens":  screenLinks(identity.Tenant()),
	})
}

func greeting(identity domain.Identity) string {
	switch {
	case identity.Name != "":
		return "Welcome, " + identity.Name
	case identity.Email != "":
		return "Welcome, " + identity.Email
	default:
		return "Welcome"
	}
}

// screenLinks arma las rutas de cada pantalla con la clave del sitio del tenant.
func screenLinks(tenant domain.Tenant) []screenLink {
	links := make([]screenLink, 0, len(dashboardScreens))
	for _, name := range dashboardScreens {
		path := "/" + name
		if tenant.WebsiteURL != "" {
			path += "?key=" + url.QueryEscape(tenant.WebsiteURL)
		}
		links = append(links, screenLink{Name: name, Path: path})
	}
	return links
}
