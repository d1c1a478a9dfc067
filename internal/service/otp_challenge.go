package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"admin-panel/internal/domain"
	"admin-panel/internal/remote"
)

const (
	OTPLength           = 6
	DefaultResendWindow = 30

	msgSendFailed        = "Failed to send OTP"
	msgResendFailed      = "Failed to resend OTP"
	msgVerifyFailed      = "Verification failed"
	msgSessionSaveFailed = "Could not save session"
)

var (
	ErrMissingIdentity = errors.New("otp challenge has no target email")
	ErrCodeLength      = errors.New("otp code must have exactly 6 characters")
	ErrResendNotReady  = errors.New("resend not available yet")
	ErrChallengeBusy   = errors.New("verification already in progress")
	ErrChallengeClosed = errors.New("otp challenge is closed")
	ErrChallengeReused = errors.New("otp challenge already started")
)

// VerifyOutcome describe como termino un intento de verificacion.
type VerifyOutcome int

const (
	// VerifyVerified: sesion iniciada, el desafio termino.
	VerifyVerified VerifyOutcome = iota + 1
	// VerifyFailed: el desafio sigue esperando codigo y LastError explica por que.
	VerifyFailed
	// VerifySuperseded: la respuesta llego tarde (back o pedido mas nuevo) y se descarto.
	VerifySuperseded
)

// ChallengeConfig ajusta el desafio. AutoTick arranca un ticker propio;
// sin AutoTick el llamador debe invocar Tick una vez por segundo.
type ChallengeConfig struct {
	ResendWindow int
	AutoTick     bool
	TickInterval time.Duration
}

// Challenge orquesta emision, reenvio con cuenta regresiva y verificacion de un OTP.
// Cada pedido remoto lleva una generacion; solo se aplica la respuesta de la generacion vigente.
type Challenge struct {
	logger  *zap.Logger
	otp     remote.OTPService
	session *SessionContext
	metrics Recorder
	cfg     ChallengeConfig

	life context.Context
	stop context.CancelFunc

	mu         sync.Mutex
	email      string
	code       string
	countdown  int
	lastError  string
	state      domain.ChallengeState
	generation uint64
	started    bool
}

func NewChallenge(logger *zap.Logger, otp remote.OTPService, session *SessionContext, metrics Recorder, email string, cfg ChallengeConfig) *Challenge {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NopRecorder{}
	}
	if cfg.ResendWindow <= 0 {
		cfg.ResendWindow = DefaultResendWindow
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	life, stop := context.WithCancel(context.Background())
	return &Challenge{
		logger:  logger,
		otp:     otp,
		session: session,
		metrics: metrics,
		cfg:     cfg,
		life:    life,
		stop:    stop,
		email:   strings.TrimSpace(email),
		state:   domain.ChallengeIssuing,
	}
}

// Start emite el primer codigo. Sin email el desafio queda abandonado y devuelve ErrMissingIdentity.
// Una falla de emision no es fatal: queda registrada en LastError y el desafio espera codigo igual.
func (c *Challenge) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrChallengeReused
	}
	c.started = true
	if c.email == "" {
		c.teardownLocked(domain.ChallengeAbandoned)
		c.mu.Unlock()
		c.logger.Warn("otp challenge without email, returning to credentials")
		return ErrMissingIdentity
	}
	c.state = domain.ChallengeIssuing
	c.countdown = c.cfg.ResendWindow
	gen := c.nextGenerationLocked()
	email := c.email
	c.mu.Unlock()

	if c.cfg.AutoTick {
		go c.runCountdown(c.life, c.cfg.TickInterval)
	}
	c.issue(ctx, gen, email, msgSendFailed)
	return nil
}

// SetCode reemplaza los digitos ingresados. Entradas de mas de 6 caracteres se rechazan.
func (c *Challenge) SetCode(code string) error {
	code = strings.TrimSpace(code)
	if utf8.RuneCountInString(code) > OTPLength {
		return ErrCodeLength
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Terminal() {
		return ErrChallengeClosed
	}
	c.code = code
	return nil
}

// Verify envia el codigo ingresado. Solo se intenta con exactamente 6 caracteres.
// Los rechazos y fallas de red no salen como error: quedan en LastError con VerifyFailed.
func (c *Challenge) Verify(ctx context.Context) (VerifyOutcome, error) {
	c.mu.Lock()
	switch {
	case c.state.Terminal():
		c.mu.Unlock()
		return 0, ErrChallengeClosed
	case c.state == domain.ChallengeVerifying:
		c.mu.Unlock()
		return 0, ErrChallengeBusy
	case utf8.RuneCountInString(c.code) != OTPLength:
		c.mu.Unlock()
		c.metrics.OTPVerification("gated")
		return 0, ErrCodeLength
	}
	c.state = domain.ChallengeVerifying
	c.lastError = ""
	gen := c.nextGenerationLocked()
	email, code := c.email, c.code
	c.mu.Unlock()

	callCtx, cancel := c.callContext(ctx)
	resp, err := c.otp.VerifyOTP(callCtx, email, code)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.logger.Debug("stale otp verification ignored", zap.String("email", email))
		return VerifySuperseded, nil
	}
	if err != nil {
		c.state = domain.ChallengeAwaitingCode
		c.code = ""
		if rejected, ok := remote.AsRejected(err); ok {
			c.lastError = rejected.Message
			c.metrics.OTPVerification("rejected")
			c.logger.Info("otp rejected", zap.String("email", email), zap.Int("status", rejected.StatusCode))
		} else {
			c.lastError = msgVerifyFailed
			c.metrics.OTPVerification("transport_error")
			c.logger.Warn("otp verification failed", zap.String("email", email), zap.Error(err))
		}
		return VerifyFailed, nil
	}

	prev, _ := c.session.Identity()
	if prev.Email == "" {
		prev.Email = email
	}
	merged := domain.MergeIdentity(prev, resp)
	if err := c.session.Login(ctx, merged); err != nil {
		c.state = domain.ChallengeAwaitingCode
		c.code = ""
		c.lastError = msgSessionSaveFailed
		c.metrics.OTPVerification("session_error")
		return VerifyFailed, nil
	}
	c.metrics.OTPVerification("verified")
	c.teardownLocked(domain.ChallengeVerified)
	return VerifyVerified, nil
}

// Resend vuelve a emitir el codigo, reinicia la cuenta regresiva y limpia error y codigo.
func (c *Challenge) Resend(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.state.Terminal():
		c.mu.Unlock()
		return ErrChallengeClosed
	case c.state == domain.ChallengeVerifying:
		c.mu.Unlock()
		return ErrChallengeBusy
	case c.countdown > 0:
		c.mu.Unlock()
		return ErrResendNotReady
	}
	c.state = domain.ChallengeResending
	c.countdown = c.cfg.ResendWindow
	c.lastError = ""
	c.code = ""
	gen := c.nextGenerationLocked()
	email := c.email
	c.mu.Unlock()

	c.issue(ctx, gen, email, msgResendFailed)
	return nil
}

// Back abandona el desafio sin contactar al servicio. No tiene efecto si ya se verifico.
func (c *Challenge) Back() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == domain.ChallengeVerified {
		return
	}
	c.teardownLocked(domain.ChallengeAbandoned)
}

// Close libera el ticker y cancela pedidos en vuelo.
func (c *Challenge) Close() {
	c.Back()
}

// Tick avanza la cuenta regresiva un segundo.
func (c *Challenge) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Terminal() {
		return
	}
	if c.countdown > 0 {
		c.countdown--
	}
}

// Pending devuelve la vista actual del desafio. En estados terminales solo informa el estado.
func (c *Challenge) Pending() domain.PendingVerification {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Terminal() {
		return domain.PendingVerification{State: c.state}
	}
	return domain.PendingVerification{
		Email:                  c.email,
		OTPDigits:              c.code,
		ResendCountdownSeconds: c.countdown,
		CanResend:              c.countdown == 0,
		LastError:              c.lastError,
		State:                  c.state,
	}
}

func (c *Challenge) State() domain.ChallengeState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done se cierra cuando el desafio termina (verificado o abandonado).
func (c *Challenge) Done() <-chan struct{} {
	return c.life.Done()
}

func (c *Challenge) issue(ctx context.Context, gen uint64, email, failureMsg string) {
	callCtx, cancel := c.callContext(ctx)
	err := c.otp.SendOTP(callCtx, email)
	cancel()

	if err != nil {
		c.metrics.OTPIssuance("failed")
		c.logger.Warn("otp issuance failed", zap.String("email", email), zap.Error(err))
	} else {
		c.metrics.OTPIssuance("sent")
		c.logger.Info("otp issued", zap.String("email", email))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	if err != nil {
		c.lastError = failureMsg
	}
	c.state = domain.ChallengeAwaitingCode
}

// callContext combina el contexto del llamador con la vida del desafio.
func (c *Challenge) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	callCtx, cancel := context.WithCancel(ctx)
	stopAfter := context.AfterFunc(c.life, cancel)
	return callCtx, func() {
		stopAfter()
		cancel()
	}
}

func (c *Challenge) nextGenerationLocked() uint64 {
	c.generation++
	return c.generation
}

func (c *Challenge) teardownLocked(final domain.ChallengeState) {
	c.state = final
	c.code = ""
	c.lastError = ""
	c.countdown = 0
	c.generation++
	c.stop()
}
