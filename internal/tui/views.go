package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"admin-panel/internal/domain"
	"admin-panel/internal/service"
)

var dashboardScreens = []string{"Products", "Orders", "Payments", "Profile"}

// Styles contiene los estilos lipgloss del dashboard
type Styles struct {
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Border  lipgloss.Style
	Key     lipgloss.Style
	Help    lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			MarginBottom(1),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")),
		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("46")),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 2),
		Key: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1),
	}
}

// View renderiza la pantalla que decide el guard
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var body string
	switch m.guard.Decide() {
	case service.ViewLoading:
		body = m.styles.Muted.Render("Loading session...")
	case service.ViewCredentials:
		body = m.renderCredentials()
	case service.ViewChallenge:
		body = m.renderChallenge()
	case service.ViewProtected:
		body = m.renderDashboard()
	}
	return m.styles.Border.Render(body) + "\n"
}

func (m Model) renderCredentials() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Admin Panel"))
	b.WriteString("\n")
	b.WriteString("Sign in with your email to receive a verification code.\n\n")
	b.WriteString(m.email.View())
	b.WriteString("\n")
	if m.busy {
		b.WriteString(m.styles.Muted.Render("Sending code..."))
		b.WriteString("\n")
	}
	m.writeNotice(&b, m.notice)
	b.WriteString(m.renderHelp(m.keys.Submit, m.keys.Quit))
	return b.String()
}

func (m Model) renderChallenge() string {
	pending, _ := m.guard.Pending()

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Verify your email"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Enter the 6-digit code sent to %s\n\n", pending.Email)
	b.WriteString(m.code.View())
	b.WriteString("\n")

	switch pending.State {
	case domain.ChallengeIssuing, domain.ChallengeResending:
		b.WriteString(m.styles.Muted.Render("Sending code..."))
		b.WriteString("\n")
	case domain.ChallengeVerifying:
		b.WriteString(m.styles.Muted.Render("Verifying..."))
		b.WriteString("\n")
	}
	if pending.CanResend {
		b.WriteString(m.styles.Muted.Render("Didn't get it? Press ctrl+r to resend."))
	} else {
		b.WriteString(m.styles.Muted.Render(fmt.Sprintf("Resend code in %ds", pending.ResendCountdownSeconds)))
	}
	b.WriteString("\n")

	m.writeNotice(&b, pending.LastError)
	if pending.LastError == "" {
		m.writeNotice(&b, m.notice)
	}
	b.WriteString(m.renderHelp(m.keys.Submit, m.keys.Resend, m.keys.Back, m.keys.Quit))
	return b.String()
}

func (m Model) renderDashboard() string {
	identity, _ := m.guard.Identity()

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Dashboard"))
	b.WriteString("\n")
	name := identity.Name
	if name == "" {
		name = identity.Email
	}
	b.WriteString(m.styles.Success.Render("Welcome, " + name))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Email:       %s\n", orNA(identity.Email))
	fmt.Fprintf(&b, "User ID:     %s\n", orNA(identity.UserID))
	fmt.Fprintf(&b, "UID:         %s\n", orNA(identity.UID))
	fmt.Fprintf(&b, "Website URL: %s\n", orNA(identity.WebsiteURL))
	fmt.Fprintf(&b, "Admin URL:   %s\n\n", orNA(identity.AdminURL))
	b.WriteString(m.styles.Muted.Render(strings.Join(dashboardScreens, " · ")))
	b.WriteString("\n")
	m.writeNotice(&b, m.notice)
	b.WriteString(m.renderHelp(m.keys.Logout, m.keys.Quit))
	return b.String()
}

func (m Model) writeNotice(b *strings.Builder, notice string) {
	if notice == "" {
		return
	}
	b.WriteString(m.styles.Error.Render(notice))
	b.WriteString("\n")
}

func (m Model) renderHelp(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		h := binding.Help()
		parts = append(parts, m.styles.Key.Render(h.Key)+" "+h.Desc)
	}
	return m.styles.Help.Render(strings.Join(parts, "  "))
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
