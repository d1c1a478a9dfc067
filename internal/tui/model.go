package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"admin-panel/internal/domain"
	"admin-panel/internal/service"
)

// sessionReadyMsg llega cuando el SessionContext termino de leer el store
type sessionReadyMsg struct{}

// sessionChangedMsg llega con cada Login o Logout del SessionContext
type sessionChangedMsg domain.Session

// challengeStartedMsg llega cuando termina la primera emision del codigo
type challengeStartedMsg struct{ err error }

type verifyDoneMsg struct {
	outcome service.VerifyOutcome
	err     error
}

type resendDoneMsg struct{ err error }

type logoutDoneMsg struct{ err error }

// tickMsg avanza la cuenta regresiva del desafio activo
type tickMsg time.Time

type keyMap struct {
	Submit key.Binding
	Resend key.Binding
	Back   key.Binding
	Logout key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		Resend: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "resend code")),
		Back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Logout: key.NewBinding(key.WithKeys("ctrl+l", "l"), key.WithHelp("l", "logout")),
		Quit:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// Model es el dashboard de terminal: credenciales, desafio OTP y pantalla protegida
type Model struct {
	ctx     context.Context
	session *service.SessionContext
	guard   *service.RouteGuard

	changes     chan domain.Session
	unsubscribe func()

	email textinput.Model
	code  textinput.Model
	keys  keyMap

	tickInterval time.Duration
	ticking      bool
	busy         bool
	notice       string

	width    int
	height   int
	quitting bool

	styles Styles
}

// NewModel crea el modelo. El desafio debe crearse sin AutoTick: el modelo maneja la cuenta regresiva.
func NewModel(ctx context.Context, session *service.SessionContext, guard *service.RouteGuard) Model {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Prompt = "Email: "
	email.CharLimit = 254

	code := textinput.New()
	code.Placeholder = "000000"
	code.Prompt = "Code: "
	code.CharLimit = service.OTPLength

	// Solo importa el ultimo estado: un cambio no leido se reemplaza por el nuevo.
	changes := make(chan domain.Session, 1)
	unsubscribe := session.Subscribe(func(snap domain.Session) {
		select {
		case <-changes:
		default:
		}
		changes <- snap
	})

	return Model{
		ctx:          ctx,
		session:      session,
		guard:        guard,
		changes:      changes,
		unsubscribe:  unsubscribe,
		email:        email,
		code:         code,
		keys:         defaultKeyMap(),
		tickInterval: time.Second,
		styles:       DefaultStyles(),
	}
}

// Init lee la sesion persistida en segundo plano
func (m Model) Init() tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		session.Init(ctx)
		return sessionReadyMsg{}
	}
}

// Close deja de observar el SessionContext
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Update maneja mensajes y actualiza el estado
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case sessionReadyMsg:
		focus := m.focusForView()
		return m, tea.Batch(focus, m.waitForSession())

	case sessionChangedMsg:
		focus := m.focusForView()
		return m, tea.Batch(focus, m.waitForSession())

	case challengeStartedMsg:
		m.busy = false
		if msg.err != nil {
			m.notice = msg.err.Error()
			cmd := m.focusForView()
			return m, cmd
		}
		m.notice = ""
		m.code.Reset()
		focus := m.focusForView()
		ticks := m.startTicking()
		return m, tea.Batch(focus, ticks)

	case verifyDoneMsg:
		m.busy = false
		m.code.Reset()
		if msg.err != nil {
			m.notice = msg.err.Error()
		} else {
			m.notice = ""
		}
		cmd := m.focusForView()
		return m, cmd

	case resendDoneMsg:
		m.busy = false
		m.code.Reset()
		if msg.err != nil {
			m.notice = msg.err.Error()
		} else {
			m.notice = ""
		}
		return m, nil

	case logoutDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.notice = msg.err.Error()
		}
		m.email.Reset()
		cmd := m.focusForView()
		return m, cmd

	case tickMsg:
		ch := m.guard.Challenge()
		if ch == nil {
			// Mientras se envia el primer codigo el desafio puede no estar registrado aun.
			if m.busy {
				return m, m.tick()
			}
			m.ticking = false
			return m, nil
		}
		ch.Tick()
		return m, m.tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	if m.busy {
		return m, nil
	}

	switch m.guard.Decide() {
	case service.ViewCredentials:
		if key.Matches(msg, m.keys.Submit) {
			m.busy = true
			m.notice = ""
			// La cuenta regresiva corre desde la entrada al desafio, no desde que termina el envio.
			submit := m.submitCredential(m.email.Value())
			ticks := m.startTicking()
			return m, tea.Batch(submit, ticks)
		}
		var cmd tea.Cmd
		m.email, cmd = m.email.Update(msg)
		return m, cmd

	case service.ViewChallenge:
		switch {
		case key.Matches(msg, m.keys.Submit):
			if err := m.syncCode(); err != nil {
				m.notice = err.Error()
				return m, nil
			}
			m.busy = true
			m.notice = ""
			return m, m.verify()
		case key.Matches(msg, m.keys.Resend):
			m.busy = true
			m.notice = ""
			return m, m.resend()
		case key.Matches(msg, m.keys.Back):
			m.guard.Back()
			m.notice = ""
			m.code.Reset()
			cmd := m.focusForView()
			return m, cmd
		}
		var cmd tea.Cmd
		m.code, cmd = m.code.Update(msg)
		if err := m.syncCode(); err != nil {
			m.notice = err.Error()
		}
		return m, cmd

	case service.ViewProtected:
		switch {
		case key.Matches(msg, m.keys.Logout):
			m.busy = true
			return m, m.logout()
		case msg.String() == "q":
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// syncCode copia los digitos ingresados al desafio activo
func (m Model) syncCode() error {
	ch := m.guard.Challenge()
	if ch == nil {
		return service.ErrNoChallenge
	}
	return ch.SetCode(m.code.Value())
}

func (m *Model) focusForView() tea.Cmd {
	switch m.guard.Decide() {
	case service.ViewCredentials:
		m.code.Blur()
		return m.email.Focus()
	case service.ViewChallenge:
		m.email.Blur()
		return m.code.Focus()
	default:
		m.email.Blur()
		m.code.Blur()
		return nil
	}
}

func (m *Model) startTicking() tea.Cmd {
	if m.ticking {
		return nil
	}
	m.ticking = true
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) waitForSession() tea.Cmd {
	changes, done := m.changes, m.ctx.Done()
	return func() tea.Msg {
		select {
		case snap := <-changes:
			return sessionChangedMsg(snap)
		case <-done:
			return nil
		}
	}
}

func (m Model) submitCredential(email string) tea.Cmd {
	guard, ctx := m.guard, m.ctx
	return func() tea.Msg {
		_, err := guard.SubmitCredential(ctx, email)
		return challengeStartedMsg{err: err}
	}
}

func (m Model) verify() tea.Cmd {
	guard, ctx, code := m.guard, m.ctx, m.code.Value()
	return func() tea.Msg {
		outcome, err := guard.Verify(ctx, code)
		return verifyDoneMsg{outcome: outcome, err: err}
	}
}

func (m Model) resend() tea.Cmd {
	guard, ctx := m.guard, m.ctx
	return func() tea.Msg {
		return resendDoneMsg{err: guard.Resend(ctx)}
	}
}

func (m Model) logout() tea.Cmd {
	guard, ctx := m.guard, m.ctx
	return func() tea.Msg {
		return logoutDoneMsg{err: guard.Logout(ctx)}
	}
}
