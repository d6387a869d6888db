package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/thumbx/internal/models"
)

func (m *Model) renderHeader() string {
	if m.snap.Loading {
		return styles.help.Render(m.spinner.View() + " checking session")
	}
	if !m.snap.SignedIn() {
		return styles.warn.Render("Not signed in")
	}

	plan := styles.badge.Render(strings.ToUpper(m.snap.SubscriptionPlan))
	credits := fmt.Sprintf("%d credits", m.snap.Credits)
	if m.snap.ProfileLoading {
		credits = m.spinner.View() + " loading profile"
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, m.snap.User.Email, "  ", plan, "  ", credits)
}

func (m *Model) renderHome() string {
	return m.menu.View()
}

func (m *Model) renderLab() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Thumbnail Lab"))
	b.WriteString("\nDescribe the thumbnail you want. Each generation costs 1 credit.\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(m.renderActionState())
	return b.String()
}

func (m *Model) renderVideo() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Video Studio"))
	b.WriteString("\nVideos render in the background. You can watch the job or close the status window at any time.\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(m.renderActionState())
	return b.String()
}

func (m *Model) renderActionState() string {
	switch {
	case m.busy:
		return m.spinner.View() + " submitting"
	case m.input.Focused():
		return styles.help.Render("enter to submit • esc to go back")
	default:
		return styles.help.Render("enter to start")
	}
}

func (m *Model) renderHistory() string {
	return m.jobs.View()
}

func (m *Model) renderLogin() string {
	title := styles.title.Render("Sign in")
	body := strings.Join([]string{
		"Run one of these in another terminal:",
		"",
		"  thumbx auth login --email you@example.com",
		"  thumbx auth login --provider google",
		"",
		"This screen updates once the session is available.",
	}, "\n")
	return title + "\n" + body
}

func (m *Model) renderStatusModal() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Video Job"))
	b.WriteString("\n")

	switch m.status {
	case models.JobCompleted:
		b.WriteString(styles.ok.Render("✓ completed"))
	case models.JobFailed:
		b.WriteString(styles.err.Render("✗ failed"))
	case models.JobUnknown:
		b.WriteString(m.spinner.View() + " waiting for the job to appear")
	default:
		b.WriteString(m.spinner.View() + " " + string(m.status))
	}
	b.WriteString("\n\n")

	for _, e := range m.events {
		b.WriteString(styles.help.Render(e))
		b.WriteString("\n")
	}
	if !m.status.IsTerminal() {
		b.WriteString("\nYou may close this, processing continues in the background.\n")
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.results, m.keys.back})
	box := styles.modal.Render(b.String() + "\n" + helpView)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m *Model) renderHelp() string {
	var keys []key.Binding
	switch m.view {
	case HomeView:
		keys = []key.Binding{m.keys.up, m.keys.down, m.keys.enter}
	case HistoryView:
		keys = []key.Binding{m.keys.up, m.keys.down, m.keys.back}
	default:
		keys = []key.Binding{m.keys.back}
	}

	if m.snap.SignedIn() {
		keys = append(keys, m.keys.refresh, m.keys.signOut)
	} else {
		keys = append(keys, m.keys.login)
	}
	if m.poller != nil {
		keys = append(keys, m.keys.results)
	}
	if m.notice != "" || m.err != nil {
		keys = append(keys, m.keys.dismiss)
	}
	keys = append(keys, m.keys.quit)
	return m.help.ShortHelpView(keys)
}
