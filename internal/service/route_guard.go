package service

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"admin-panel/internal/domain"
	"admin-panel/internal/remote"
)

// View es lo que el guard decide mostrar.
type View string

const (
	ViewLoading     View = "loading"
	ViewCredentials View = "credentials"
	ViewChallenge   View = "otp"
	ViewProtected   View = "protected"
)

var ErrNoChallenge = errors.New("no otp challenge in progress")

// ChallengeFactory crea desafios con las dependencias ya resueltas.
type ChallengeFactory func(email string) *Challenge

// ChallengeDeps agrupa lo que todo desafio necesita.
type ChallengeDeps struct {
	Logger  *zap.Logger
	OTP     remote.OTPService
	Session *SessionContext
	Metrics Recorder
}

func NewChallengeFactory(deps ChallengeDeps, cfg ChallengeConfig) ChallengeFactory {
	return func(email string) *Challenge {
		return NewChallenge(deps.Logger, deps.OTP, deps.Session, deps.Metrics, email, cfg)
	}
}

// RouteGuard decide entre cargando, credenciales, desafio OTP o contenido protegido.
// Es dueño del desafio activo; como mucho hay uno.
type RouteGuard struct {
	logger       *zap.Logger
	session      *SessionContext
	newChallenge ChallengeFactory

	mu        sync.Mutex
	challenge *Challenge
}

func NewRouteGuard(logger *zap.Logger, session *SessionContext, factory ChallengeFactory) *RouteGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RouteGuard{
		logger:       logger,
		session:      session,
		newChallenge: factory,
	}
}

// Decide se reevalua en cada llamada a partir del SessionContext y del desafio activo.
func (g *RouteGuard) Decide() View {
	snap := g.session.Snapshot()
	switch {
	case snap.IsLoading:
		return ViewLoading
	case snap.IsAuthenticated:
		return ViewProtected
	}
	if g.Challenge() != nil {
		return ViewChallenge
	}
	return ViewCredentials
}

// SubmitCredential reemplaza cualquier desafio previo y emite el primer codigo.
func (g *RouteGuard) SubmitCredential(ctx context.Context, email string) (*Challenge, error) {
	advance, err := SubmitCredential(email)
	if err != nil {
		return nil, err
	}

	ch := g.newChallenge(advance.Email)
	g.mu.Lock()
	prev := g.challenge
	g.challenge = ch
	g.mu.Unlock()
	if prev != nil {
		prev.Close()
	}

	if err := ch.Start(ctx); err != nil {
		g.release(ch)
		return nil, err
	}
	return ch, nil
}

// Challenge devuelve el desafio activo o nil si no hay uno abierto.
func (g *RouteGuard) Challenge() *Challenge {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.challenge == nil || g.challenge.State().Terminal() {
		return nil
	}
	return g.challenge
}

// Verify carga el codigo en el desafio activo y lo verifica.
// Al verificar, el desafio se descarta y Decide pasa a protegido.
func (g *RouteGuard) Verify(ctx context.Context, code string) (VerifyOutcome, error) {
	ch := g.Challenge()
	if ch == nil {
		return 0, ErrNoChallenge
	}
	if err := ch.SetCode(code); err != nil {
		return 0, err
	}
	outcome, err := ch.Verify(ctx)
	if err != nil {
		return 0, err
	}
	if outcome == VerifyVerified {
		g.release(ch)
	}
	return outcome, nil
}

func (g *RouteGuard) Resend(ctx context.Context) error {
	ch := g.Challenge()
	if ch == nil {
		return ErrNoChallenge
	}
	return ch.Resend(ctx)
}

// Back abandona el desafio y vuelve a credenciales. Sin desafio no hace nada.
func (g *RouteGuard) Back() {
	g.mu.Lock()
	ch := g.challenge
	g.challenge = nil
	g.mu.Unlock()
	if ch != nil {
		ch.Back()
	}
}

// Logout cierra la sesion y cualquier desafio abierto.
func (g *RouteGuard) Logout(ctx context.Context) error {
	g.Back()
	return g.session.Logout(ctx)
}

// Pending expone la vista del desafio activo.
func (g *RouteGuard) Pending() (domain.PendingVerification, bool) {
	ch := g.Challenge()
	if ch == nil {
		return domain.PendingVerification{}, false
	}
	return ch.Pending(), true
}

// Identity devuelve la identidad de la sesion activa.
func (g *RouteGuard) Identity() (domain.Identity, bool) {
	return g.session.Identity()
}

// Session expone el snapshot de sesion junto con la decision del guard.
func (g *RouteGuard) Session() (domain.Session, View) {
	return g.session.Snapshot(), g.Decide()
}

// Close libera el desafio activo al apagar el proceso.
func (g *RouteGuard) Close() {
	g.Back()
}

func (g *RouteGuard) release(ch *Challenge) {
	g.mu.Lock()
	if g.challenge == ch {
		g.challenge = nil
	}
	g.mu.Unlock()
	ch.Close()
}
