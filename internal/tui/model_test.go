package tui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"admin-panel/internal/domain"
	"admin-panel/internal/remote"
	"admin-panel/internal/repository"
	"admin-panel/internal/service"
)

type fakeOTP struct {
	mu    sync.Mutex
	sends []string
	codes []string
	resp  domain.VerificationResponse
}

func (f *fakeOTP) SendOTP(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, email)
	return nil
}

func (f *fakeOTP) VerifyOTP(_ context.Context, _, code string) (domain.VerificationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, code)
	return f.resp, nil
}

// gatedOTP retiene el envio hasta que el test cierra release.
type gatedOTP struct {
	fakeOTP
	started chan struct{}
	release chan struct{}
}

func (g *gatedOTP) SendOTP(ctx context.Context, email string) error {
	g.started <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return g.fakeOTP.SendOTP(ctx, email)
}

func newTestModel(t *testing.T) (Model, *fakeOTP, *service.RouteGuard) {
	t.Helper()
	name := "Ada"
	otp := &fakeOTP{resp: domain.VerificationResponse{Name: &name}}
	m, guard := newTestModelWith(t, otp)
	return m, otp, guard
}

func newTestModelWith(t *testing.T, otp remote.OTPService) (Model, *service.RouteGuard) {
	t.Helper()
	store := repository.NewSessionStore(nil, repository.NewMemoryBackend(), nil, "")
	session := service.NewSessionContext(nil, store, nil)
	factory := service.NewChallengeFactory(service.ChallengeDeps{OTP: otp, Session: session}, service.ChallengeConfig{ResendWindow: 30})
	guard := service.NewRouteGuard(nil, session, factory)
	t.Cleanup(guard.Close)

	m := NewModel(context.Background(), session, guard)
	m.tickInterval = time.Millisecond
	t.Cleanup(m.Close)
	return m, guard
}

func typeText(m tea.Model, text string) tea.Model {
	for _, r := range text {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

// press envia la tecla y ejecuta el comando resultante cuando devuelve un mensaje de dominio.
func press(t *testing.T, m tea.Model, msg tea.KeyMsg) tea.Model {
	t.Helper()
	m, cmd := m.Update(msg)
	return apply(m, cmd)
}

// apply ejecuta el comando y entrega al modelo solo los resultados de operaciones.
func apply(m tea.Model, cmd tea.Cmd) tea.Model {
	if cmd == nil {
		return m
	}
	switch out := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range out {
			m = apply(m, c)
		}
	case challengeStartedMsg, verifyDoneMsg, resendDoneMsg, logoutDoneMsg:
		m, _ = m.Update(out)
	}
	return m
}

func ready(t *testing.T, m Model) tea.Model {
	t.Helper()
	updated, _ := m.Update(m.Init()())
	return updated
}

func TestModel_LoadingView(t *testing.T) {
	m, _, _ := newTestModel(t)
	if !strings.Contains(m.View(), "Loading session") {
		t.Fatalf("expected loading view, got %q", m.View())
	}
}

func TestModel_LoginFlow(t *testing.T) {
	m, otp, guard := newTestModel(t)
	model := ready(t, m)
	if !strings.Contains(model.View(), "Admin Panel") {
		t.Fatalf("expected credentials view, got %q", model.View())
	}

	model = typeText(model, "a@b.co")
	model = press(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	if len(otp.sends) != 1 || otp.sends[0] != "a@b.co" {
		t.Fatalf("expected otp send for a@b.co, got %v", otp.sends)
	}
	if guard.Decide() != service.ViewChallenge {
		t.Fatalf("expected challenge view, got %s", guard.Decide())
	}
	if !strings.Contains(model.View(), "Resend code in 30s") {
		t.Fatalf("expected countdown, got %q", model.View())
	}

	for i := 0; i < 30; i++ {
		model, _ = model.Update(tickMsg{})
	}
	if !strings.Contains(model.View(), "ctrl+r to resend") {
		t.Fatalf("expected resend hint, got %q", model.View())
	}

	model = typeText(model, "12345")
	model = press(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	if len(otp.codes) != 0 {
		t.Fatalf("short code must not be verified")
	}
	if !strings.Contains(model.View(), "exactly 6 characters") {
		t.Fatalf("expected length notice, got %q", model.View())
	}

	model = typeText(model, "123456")
	model = press(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	if len(otp.codes) != 1 || otp.codes[0] != "123456" {
		t.Fatalf("expected verify with 123456, got %v", otp.codes)
	}
	view := model.View()
	if !strings.Contains(view, "Welcome, Ada") || !strings.Contains(view, "a@b.co") {
		t.Fatalf("expected dashboard, got %q", view)
	}

	model = press(t, model, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})
	if guard.Decide() != service.ViewCredentials {
		t.Fatalf("expected credentials after logout, got %s", guard.Decide())
	}
	if !strings.Contains(model.View(), "Admin Panel") {
		t.Fatalf("expected credentials view after logout")
	}
}

func TestModel_BackFromChallenge(t *testing.T) {
	m, _, guard := newTestModel(t)
	model := ready(t, m)
	model = typeText(model, "a@b.co")
	model = press(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	ch := guard.Challenge()
	if ch == nil {
		t.Fatalf("expected active challenge")
	}

	model = press(t, model, tea.KeyMsg{Type: tea.KeyEsc})
	if guard.Decide() != service.ViewCredentials {
		t.Fatalf("expected credentials after back")
	}
	if ch.State() != domain.ChallengeAbandoned {
		t.Fatalf("expected abandoned challenge, got %s", ch.State())
	}

	_, cmd := model.Update(tickMsg{})
	if cmd != nil {
		t.Fatalf("expected ticking to stop without a challenge")
	}
}

func TestModel_ResendBeforeCountdown(t *testing.T) {
	m, otp, _ := newTestModel(t)
	model := ready(t, m)
	model = typeText(model, "a@b.co")
	model = press(t, model, tea.KeyMsg{Type: tea.KeyEnter})

	model = press(t, model, tea.KeyMsg{Type: tea.KeyCtrlR})
	if len(otp.sends) != 1 {
		t.Fatalf("resend must wait for the countdown")
	}
	if !strings.Contains(model.View(), "resend not available yet") {
		t.Fatalf("expected resend notice, got %q", model.View())
	}
}

func TestModel_QuitKey(t *testing.T) {
	m, _, _ := newTestModel(t)
	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if model.(Model).quitting != true {
		t.Fatalf("expected quitting state")
	}
}

func TestModel_CountdownRunsWhileFirstCodeIsSent(t *testing.T) {
	otp := &gatedOTP{started: make(chan struct{}, 1), release: make(chan struct{})}
	m, guard := newTestModelWith(t, otp)
	model := ready(t, m)
	model = typeText(model, "a@b.co")

	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !model.(Model).ticking {
		t.Fatalf("expected countdown to start on enter")
	}
	batch, ok := cmd().(tea.BatchMsg)
	if !ok || len(batch) != 2 {
		t.Fatalf("expected submit and tick commands, got %T", cmd())
	}
	if _, isTick := batch[1]().(tickMsg); !isTick {
		t.Fatalf("expected second command to tick")
	}

	submitted := make(chan tea.Msg, 1)
	go func() { submitted <- batch[0]() }()
	select {
	case <-otp.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("otp send never started")
	}

	ch := guard.Challenge()
	if ch == nil {
		t.Fatalf("expected challenge registered while the code is sent")
	}
	for i := 0; i < 3; i++ {
		var next tea.Cmd
		model, next = model.Update(tickMsg{})
		if next == nil {
			t.Fatalf("ticking stopped while the code was being sent")
		}
	}
	if got := ch.Pending().ResendCountdownSeconds; got != 27 {
		t.Fatalf("expected countdown 27 during send, got %d", got)
	}

	close(otp.release)
	select {
	case out := <-submitted:
		model, _ = model.Update(out)
	case <-time.After(2 * time.Second):
		t.Fatalf("otp send never finished")
	}
	if !strings.Contains(model.View(), "Resend code in 27s") {
		t.Fatalf("expected countdown kept from entry, got %q", model.View())
	}
}

func TestModel_FollowsSessionChanges(t *testing.T) {
	m, guard := newTestModelWith(t, &fakeOTP{})
	model := ready(t, m)

	// Init ya dejo un snapshot sin sesion en el canal.
	if _, ok := m.waitForSession()().(sessionChangedMsg); !ok {
		t.Fatalf("expected initial session snapshot")
	}

	if err := m.session.Login(context.Background(), domain.Identity{Email: "a@b.co", Name: "Ada"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	msg, ok := m.waitForSession()().(sessionChangedMsg)
	if !ok || !msg.IsAuthenticated {
		t.Fatalf("expected authenticated session change, got %+v", msg)
	}
	model, cmd := model.Update(msg)
	if cmd == nil {
		t.Fatalf("expected to keep listening for session changes")
	}
	if guard.Decide() != service.ViewProtected || !strings.Contains(model.View(), "Welcome, Ada") {
		t.Fatalf("expected dashboard after session change, got %q", model.View())
	}

	m.Close()
	if err := m.session.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	select {
	case snap := <-m.changes:
		t.Fatalf("unexpected session change after close: %+v", snap)
	default:
	}
}
