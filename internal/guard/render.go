package guard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	dimmed   = lipgloss.NewStyle().Faint(true).Foreground(lipgloss.Color("#626262"))
	overlay  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#7D56F4")).Padding(1, 3).Bold(true)
	paywall  = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("#FFA500")).Padding(2, 6)
	headline = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).MarginBottom(1)
	hint     = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#626262"))
)

// Messages shown for locked states.
const (
	LoadingText   = "Checking your session..."
	LoginPrompt   = "Sign in to continue"
	UpgradePrompt = "Upgrade to Pro to unlock this feature"
	LoginHint     = "press l to log in"
	UpgradeHint   = "run `thumbx profile refresh` after upgrading"
)

// Render returns what the view shows for state. width and height size the soft overlay and hard screen.
func (g Guard) Render(state State, content string, width, height int) string {
	switch state {
	case Unlocked:
		return content
	case Loading:
		return center(hint.Render(LoadingText), width, height)
	}

	if g.Variant == Redirect {
		return ""
	}

	title, help := LoginPrompt, LoginHint
	if state == LockedInsufficientPlan {
		title, help = UpgradePrompt, UpgradeHint
	}

	if g.Variant == Hard {
		body := lipgloss.JoinVertical(lipgloss.Center, headline.Render(title), hint.Render(help))
		return center(paywall.Render(body), width, height)
	}

	box := overlay.Render(lipgloss.JoinVertical(lipgloss.Center, title, hint.Render(help)))
	return overlayOn(dimmed.Render(content), box, width)
}

// overlayOn keeps the background's height and replaces its middle rows with the box, centered.
func overlayOn(background, box string, width int) string {
	rows := strings.Split(background, "\n")
	boxRows := strings.Split(box, "\n")
	width = max(width, lipgloss.Width(background), lipgloss.Width(box))

	for len(rows) < len(boxRows) {
		rows = append(rows, "")
	}

	top := (len(rows) - len(boxRows)) / 2
	for i, line := range boxRows {
		rows[top+i] = lipgloss.PlaceHorizontal(width, lipgloss.Center, line)
	}
	return strings.Join(rows, "\n")
}

func center(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, s)
}
