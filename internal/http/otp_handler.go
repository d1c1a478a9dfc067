package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"admin-panel/internal/service"
)

// OTPHandler expone el desafio OTP activo.
type OTPHandler struct {
	logger *zap.Logger
	guard  *service.RouteGuard
}

func NewOTPHandler(logger *zap.Logger, guard *service.RouteGuard) *OTPHandler {
	return &OTPHandler{logger: logger, guard: guard}
}

// GetPending maneja GET /api/otp.
func (h *OTPHandler) GetPending(c *gin.Context) {
	pending, ok := h.guard.Pending()
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": service.ErrNoChallenge.Error(), "view": h.guard.Decide()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending})
}

// SetCode maneja PUT /api/otp/code.
func (h *OTPHandler) SetCode(c *gin.Context) {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	ch := h.guard.Challenge()
	if ch == nil {
		h.writeChallengeError(c, service.ErrNoChallenge)
		return
	}
	if err := ch.SetCode(req.Code); err != nil {
		h.writeChallengeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": ch.Pending()})
}

// Verify maneja POST /api/otp/verify. Sin code en el cuerpo usa los digitos ya cargados.
func (h *OTPHandler) Verify(c *gin.Context) {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	code := req.Code
	if code == "" {
		pending, _ := h.guard.Pending()
		code = pending.OTPDigits
	}

	outcome, err := h.guard.Verify(c.Request.Context(), code)
	if err != nil {
		h.writeChallengeError(c, err)
		return
	}

	switch outcome {
	case service.VerifyVerified:
		session, view := h.guard.Session()
		c.JSON(http.StatusOK, gin.H{"session": session, "view": view})
	case service.VerifySuperseded:
		c.JSON(http.StatusConflict, gin.H{"error": "verification superseded", "view": h.guard.Decide()})
	default:
		pending, _ := h.guard.Pending()
		c.JSON(http.StatusUnauthorized, gin.H{"error": pending.LastError, "pending": pending})
	}
}

// Resend maneja POST /api/otp/resend.
func (h *OTPHandler) Resend(c *gin.Context) {
	if err := h.guard.Resend(c.Request.Context()); err != nil {
		h.writeChallengeError(c, err)
		return
	}
	pending, _ := h.guard.Pending()
	c.JSON(http.StatusAccepted, gin.H{"pending": pending})
}

// Back maneja POST /api/otp/back.
func (h *OTPHandler) Back(c *gin.Context) {
	h.guard.Back()
	c.JSON(http.StatusOK, gin.H{"view": h.guard.Decide()})
}

func (h *OTPHandler) writeChallengeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCodeLength):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrResendNotReady):
		pending, _ := h.guard.Pending()
		c.Header("Retry-After", strconv.Itoa(max(pending.ResendCountdownSeconds, 1)))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error(), "pending": pending})
	case errors.Is(err, service.ErrChallengeBusy),
		errors.Is(err, service.ErrChallengeClosed),
		errors.Is(err, service.ErrNoChallenge):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "view": h.guard.Decide()})
	default:
		h.logger.Error("otp request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not process otp request"})
	}
}
