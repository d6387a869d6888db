package guard

import (
	"fmt"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/thumbx/internal/models"
)

var someone = &models.User{ID: "u-1", Email: "a@b.c"}

func TestEvaluate(t *testing.T) {
	t.Run("Requires Pro", func(t *testing.T) {
		tests := []struct {
			loading bool
			user    *models.User
			isPro   bool
			want    State
		}{
			{true, nil, false, Loading},
			{true, nil, true, Loading},
			{true, someone, false, Loading},
			{true, someone, true, Loading},
			{false, nil, false, LockedNoSession},
			{false, nil, true, LockedNoSession},
			{false, someone, false, LockedInsufficientPlan},
			{false, someone, true, Unlocked},
		}

		for _, tt := range tests {
			name := fmt.Sprintf("loading=%v user=%v pro=%v", tt.loading, tt.user != nil, tt.isPro)
			t.Run(name, func(t *testing.T) {
				for range 3 {
					if got := Evaluate(tt.loading, tt.user, true, tt.isPro); got != tt.want {
						t.Errorf("Evaluate() = %s, want %s", got, tt.want)
					}
				}
			})
		}
	})

	t.Run("Without Plan Requirement", func(t *testing.T) {
		if got := Evaluate(false, someone, false, false); got != Unlocked {
			t.Errorf("expected unlocked, got %s", got)
		}
		if got := Evaluate(false, nil, false, true); got != LockedNoSession {
			t.Errorf("expected locked_no_session, got %s", got)
		}
	})
}

func TestState(t *testing.T) {
	if Loading.Locked() || Unlocked.Locked() {
		t.Error("loading and unlocked are not locked")
	}
	if !LockedNoSession.Locked() || !LockedInsufficientPlan.Locked() {
		t.Error("lock states should report locked")
	}
	if State(99).String() != "unknown" {
		t.Error("expected unknown for out-of-range state")
	}
}

func TestGuard(t *testing.T) {
	t.Run("Variants Share Logic", func(t *testing.T) {
		for _, v := range []Variant{Soft, Hard} {
			g := Guard{Variant: v, RequiresPro: true}
			if got := g.Decide(false, someone, false); got.State != LockedInsufficientPlan || got.Navigate != "" {
				t.Errorf("%s: unexpected outcome %+v", v, got)
			}
			if got := g.Decide(false, nil, false); got.State != LockedNoSession || got.Navigate != "" {
				t.Errorf("%s: unexpected outcome %+v", v, got)
			}
		}
	})

	t.Run("Redirect Navigates To Login", func(t *testing.T) {
		g := Guard{Variant: Redirect}
		if got := g.Decide(false, nil, false); got.Navigate != RouteLogin {
			t.Errorf("expected login navigation, got %+v", got)
		}
		if got := g.Decide(true, nil, false); got.Navigate != "" || got.State != Loading {
			t.Errorf("loading should not navigate, got %+v", got)
		}
	})

	t.Run("Redirect Ignores Plan", func(t *testing.T) {
		g := Guard{Variant: Redirect, RequiresPro: true}
		if !g.Allows(false, someone, false) {
			t.Error("redirect guard should only check the session")
		}
	})

	t.Run("Allows", func(t *testing.T) {
		g := Guard{Variant: Hard, RequiresPro: true}
		if g.Allows(true, someone, true) || g.Allows(false, someone, false) || !g.Allows(false, someone, true) {
			t.Error("unexpected Allows result")
		}
	})
}

func TestRender(t *testing.T) {
	content := "row one\nrow two\nrow three\nrow four\nrow five\nrow six\nrow seven"

	t.Run("Unlocked Renders Content", func(t *testing.T) {
		if got := (Guard{Variant: Soft}).Render(Unlocked, content, 80, 20); got != content {
			t.Errorf("expected content unchanged, got %q", got)
		}
	})

	t.Run("Loading Hides Content", func(t *testing.T) {
		got := (Guard{Variant: Soft}).Render(Loading, content, 80, 20)
		if strings.Contains(got, "row one") || strings.Contains(got, LoginPrompt) {
			t.Errorf("loading should show only the indicator, got %q", got)
		}
		if !strings.Contains(got, LoadingText) {
			t.Error("expected loading text")
		}
	})

	t.Run("Soft Keeps Layout", func(t *testing.T) {
		var rows []string
		for i := range 14 {
			rows = append(rows, fmt.Sprintf("row %02d", i))
		}
		content := strings.Join(rows, "\n")

		got := (Guard{Variant: Soft}).Render(LockedNoSession, content, 40, 0)
		if !strings.Contains(got, LoginPrompt) {
			t.Error("expected login prompt")
		}
		if !strings.Contains(got, "row 00") || !strings.Contains(got, "row 13") {
			t.Error("expected dimmed content around the overlay")
		}
		if h := lipgloss.Height(got); h != lipgloss.Height(content) {
			t.Errorf("expected height %d, got %d", lipgloss.Height(content), h)
		}
	})

	t.Run("Hard Replaces Content", func(t *testing.T) {
		got := (Guard{Variant: Hard, RequiresPro: true}).Render(LockedInsufficientPlan, content, 80, 20)
		if strings.Contains(got, "row one") {
			t.Error("hard gate must not show content")
		}
		if !strings.Contains(got, UpgradePrompt) {
			t.Error("expected upgrade prompt")
		}
	})

	t.Run("Redirect Renders Nothing", func(t *testing.T) {
		if got := (Guard{Variant: Redirect}).Render(LockedNoSession, content, 80, 20); got != "" {
			t.Errorf("expected empty render, got %q", got)
		}
	})
}
