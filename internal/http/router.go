package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"admin-panel/internal/service"
)

const requestIDHeader = "X-Request-ID"

// NewRouter configura el router de Gin con middlewares y rutas del dashboard.
func NewRouter(
	logger *zap.Logger,
	guard *service.RouteGuard,
	limiter service.AttemptLimiter,
	sessionH *SessionHandler,
	otpH *OTPHandler,
	metrics http.Handler,
) *gin.Engine {
	r := gin.New()

	r.Use(requestIDMiddleware(), zapLoggerMiddleware(logger), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "view": guard.Decide()})
	})
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	api := r.Group("/api", jsonContentTypeMiddleware())
	api.GET("/session", sessionH.GetSession)
	api.POST("/login", AttemptLimitMiddleware(limiter, "login"), sessionH.Login)
	api.POST("/logout", sessionH.Logout)

	otp := api.Group("/otp")
	otp.GET("", otpH.GetPending)
	otp.PUT("/code", otpH.SetCode)
	otp.POST("/verify", AttemptLimitMiddleware(limiter, "verify"), otpH.Verify)
	otp.POST("/resend", AttemptLimitMiddleware(limiter, "resend"), otpH.Resend)
	otp.POST("/back", otpH.Back)

	protected := api.Group("", RouteGuardMiddleware(guard))
	protected.GET("/profile", sessionH.Profile)
	protected.GET("/tenant", sessionH.Tenant)
	protected.GET("/dashboard", sessionH.Dashboard)

	return r
}

// requestIDMiddleware reutiliza el X-Request-ID entrante o genera uno.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString(requestIDHeader)),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
