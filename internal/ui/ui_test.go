package ui

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/thumbx/internal/auth"
	"github.com/desertthunder/thumbx/internal/guard"
	"github.com/desertthunder/thumbx/internal/models"
	"github.com/desertthunder/thumbx/internal/services"
	"github.com/desertthunder/thumbx/internal/shared"
	"github.com/desertthunder/thumbx/internal/tasks"
	tu "github.com/desertthunder/thumbx/internal/testing"
)

type fakeSubmitter struct {
	mu     sync.Mutex
	result *services.WebhookResult
	reqs   []services.WebhookRequest
}

func (f *fakeSubmitter) Submit(ctx context.Context, req services.WebhookRequest) (*services.WebhookResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.result, nil
}

type fakeHistory struct {
	jobs []*models.JobRecord
}

func (f *fakeHistory) List(criteria map[string]any) ([]*models.JobRecord, error) {
	return f.jobs, nil
}

func newManager(t *testing.T, identity *tu.MockIdentity, profile *models.Profile) *auth.Manager {
	t.Helper()
	var profiles *tu.MockProfiles
	if profile != nil {
		profiles = tu.NewMockProfiles(profile)
	} else {
		profiles = tu.NewMockProfiles()
	}
	m := auth.NewManager(identity, profiles, auth.Options{Logger: shared.NewLogger(io.Discard)})
	m.Initialize(context.Background())
	m.Wait()
	t.Cleanup(m.Close)
	return m
}

func signedIn(t *testing.T, plan models.Plan, credits int) (*auth.Manager, *tu.MockIdentity) {
	t.Helper()
	session := &models.Session{User: models.User{ID: "u-1", Email: "creator@example.com"}, AccessToken: "t"}
	identity := tu.NewMockIdentity(session, nil)
	return newManager(t, identity, &models.Profile{ID: "u-1", Credits: credits, SubscriptionPlan: plan}), identity
}

func newTestModel(t *testing.T, opts Options) *Model {
	t.Helper()
	m := NewModel(context.Background(), opts)
	t.Cleanup(m.Close)
	m.Update(authChangedMsg{})
	return m
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drainPoller feeds poll messages back into the model until the poller finishes.
func drainPoller(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for cmd != nil {
		msgs := make(chan tea.Msg, 1)
		go func(c tea.Cmd) { msgs <- c() }(cmd)

		select {
		case msg := <-msgs:
			if _, done := msg.(pollDoneMsg); done {
				return
			}
			_, cmd = m.Update(msg)
		case <-deadline:
			t.Fatal("poller did not finish")
		}
	}
}

func TestViewState(t *testing.T) {
	tests := []struct {
		view ViewState
		want string
	}{
		{HomeView, "home"},
		{LabView, "lab"},
		{VideoView, "video"},
		{HistoryView, "history"},
		{LoginView, "login"},
		{ViewState(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.view.String(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}

func TestModelSignedOut(t *testing.T) {
	t.Run("Header Shows Signed Out", func(t *testing.T) {
		m := newTestModel(t, Options{Auth: newManager(t, tu.NewMockIdentity(nil, nil), nil)})

		if !strings.Contains(m.View(), "Not signed in") {
			t.Errorf("expected signed-out header, got:\n%s", m.View())
		}
	})

	t.Run("History Redirects To Login", func(t *testing.T) {
		m := newTestModel(t, Options{Auth: newManager(t, tu.NewMockIdentity(nil, nil), nil), History: &fakeHistory{}})

		if cmd := m.navigate(HistoryView); cmd != nil {
			t.Error("expected no history load while signed out")
		}
		if m.Current() != LoginView {
			t.Errorf("expected login view, got %s", m.Current())
		}
		if !strings.Contains(m.View(), "thumbx auth login") {
			t.Error("expected login instructions")
		}
	})

	t.Run("Lab Shows Soft Overlay", func(t *testing.T) {
		m := newTestModel(t, Options{Auth: newManager(t, tu.NewMockIdentity(nil, nil), nil)})
		m.navigate(LabView)

		if m.input.Focused() {
			t.Error("expected input to stay blurred behind the overlay")
		}
		if !strings.Contains(m.View(), guard.LoginPrompt) {
			t.Errorf("expected login prompt overlay, got:\n%s", m.View())
		}
	})

	t.Run("Login Key Opens Login View", func(t *testing.T) {
		m := newTestModel(t, Options{Auth: newManager(t, tu.NewMockIdentity(nil, nil), nil)})
		m.Update(keyMsg("l"))

		if m.Current() != LoginView {
			t.Errorf("expected login view, got %s", m.Current())
		}
	})

	t.Run("Sign In Leaves Login View", func(t *testing.T) {
		identity := tu.NewMockIdentity(nil, nil)
		manager := newManager(t, identity, &models.Profile{ID: "u-2", Credits: 3})
		m := newTestModel(t, Options{Auth: manager})
		m.navigate(LoginView)

		identity.Emit(models.EventSignedIn, &models.Session{User: models.User{ID: "u-2", Email: "new@example.com"}, AccessToken: "t"})
		manager.Wait()
		m.Update(authChangedMsg{})

		if m.Current() != HomeView {
			t.Errorf("expected home view after sign-in, got %s", m.Current())
		}
		if !strings.Contains(m.View(), "new@example.com") {
			t.Error("expected header to show the signed-in email")
		}
	})
}

func TestModelPlanGates(t *testing.T) {
	t.Run("Free User Sees Paywall For Video", func(t *testing.T) {
		manager, _ := signedIn(t, models.PlanFree, 2)
		m := newTestModel(t, Options{Auth: manager})
		m.navigate(VideoView)

		view := m.View()
		if !strings.Contains(view, guard.UpgradePrompt) {
			t.Errorf("expected upgrade prompt, got:\n%s", view)
		}
		if strings.Contains(view, "Video Studio") {
			t.Error("expected hard gate to hide the video form")
		}
	})

	t.Run("Free User Can Use Lab", func(t *testing.T) {
		manager, _ := signedIn(t, models.PlanFree, 2)
		m := newTestModel(t, Options{Auth: manager})
		m.navigate(LabView)

		if !m.input.Focused() {
			t.Error("expected input focus")
		}
		if !strings.Contains(m.View(), "Thumbnail Lab") {
			t.Error("expected lab content")
		}
	})

	t.Run("Header Shows Plan And Credits", func(t *testing.T) {
		manager, _ := signedIn(t, models.PlanPro, 7)
		m := newTestModel(t, Options{Auth: manager})

		view := m.View()
		if !strings.Contains(view, "PRO") || !strings.Contains(view, "7 credits") {
			t.Errorf("expected plan badge and credits, got:\n%s", view)
		}
	})
}

func TestModelActions(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	t.Run("Thumbnail Submission Charges Credits", func(t *testing.T) {
		manager, _ := signedIn(t, models.PlanFree, 2)
		submitter := &fakeSubmitter{result: &services.WebhookResult{Kind: services.ResultImages, Images: []string{"https://cdn.example.com/a.png"}}}
		m := newTestModel(t, Options{Auth: manager, Engine: tasks.NewStudioEngine(manager, submitter, nil, logger)})
		m.navigate(LabView)
		m.input.SetValue("neon gamer face")

		_, cmd := m.Update(keyMsg("enter"))
		if cmd == nil || !m.busy {
			t.Fatal("expected a submission command")
		}
		m.Update(cmd())

		if m.err != nil {
			t.Fatalf("unexpected error: %v", m.err)
		}
		if m.snap.Credits != 1 {
			t.Errorf("expected 1 credit left, got %d", m.snap.Credits)
		}
		if !strings.Contains(m.notice, "Generated 1 image") {
			t.Errorf("unexpected notice %q", m.notice)
		}
		if submitter.reqs[0].Prompt != "neon gamer face" {
			t.Errorf("unexpected prompt %q", submitter.reqs[0].Prompt)
		}
	})

	t.Run("Missing Engine Reports Error", func(t *testing.T) {
		manager, _ := signedIn(t, models.PlanFree, 2)
		m := newTestModel(t, Options{Auth: manager})
		m.navigate(LabView)
		m.input.SetValue("x")
		m.Update(keyMsg("enter"))

		if m.err != errNoEngine {
			t.Errorf("expected errNoEngine, got %v", m.err)
		}
	})

	t.Run("Video Opens Status Modal Until Complete", func(t *testing.T) {
		manager, _ := signedIn(t, models.PlanPro, 3)
		submitter := &fakeSubmitter{result: &services.WebhookResult{Kind: services.ResultAccepted}}
		jobs := tu.NewMockJobs(tu.JobStep{Status: models.JobPending}, tu.JobStep{Status: models.JobProcessing}, tu.JobStep{Status: models.JobCompleted})
		m := newTestModel(t, Options{
			Auth:   manager,
			Engine: tasks.NewStudioEngine(manager, submitter, nil, logger),
			Jobs:   jobs,
			Poll:   tasks.PollerOptions{Interval: time.Millisecond, Logger: logger},
		})
		m.navigate(VideoView)
		m.input.SetValue("Launch day")

		_, cmd := m.Update(keyMsg("enter"))
		_, cmd = m.Update(cmd())
		if !m.modal {
			t.Fatal("expected status modal")
		}
		drainPoller(t, m, cmd)

		if m.status != models.JobCompleted {
			t.Errorf("expected completed, got %s", m.status)
		}
		if !strings.Contains(m.View(), "completed") {
			t.Errorf("expected completed modal, got:\n%s", m.View())
		}
	})

	t.Run("Closing Modal Leaves Job In Background", func(t *testing.T) {
		manager, _ := signedIn(t, models.PlanPro, 3)
		submitter := &fakeSubmitter{result: &services.WebhookResult{Kind: services.ResultAccepted}}
		m := newTestModel(t, Options{
			Auth:    manager,
			Engine:  tasks.NewStudioEngine(manager, submitter, nil, logger),
			Jobs:    tu.NewMockJobs(tu.JobStep{Status: models.JobProcessing}),
			History: &fakeHistory{},
			Poll:    tasks.PollerOptions{Interval: time.Hour, Logger: logger},
		})
		m.navigate(VideoView)
		m.input.SetValue("Launch day")

		_, cmd := m.Update(keyMsg("enter"))
		m.Update(cmd())
		m.Update(keyMsg("esc"))

		if m.modal {
			t.Fatal("expected modal to close")
		}
		if !strings.Contains(m.notice, "background") {
			t.Errorf("expected background notice, got %q", m.notice)
		}

		m.Update(keyMsg("g"))
		if m.Current() != HistoryView {
			t.Errorf("expected go-to-results to open history, got %s", m.Current())
		}
	})
}

func TestModelHistory(t *testing.T) {
	manager, _ := signedIn(t, models.PlanFree, 2)
	job := models.NewJobRecord("u-1", models.KindThumbnail, "neon gamer face")
	m := newTestModel(t, Options{Auth: manager, History: &fakeHistory{jobs: []*models.JobRecord{job}}})

	cmd := m.navigate(HistoryView)
	if cmd == nil {
		t.Fatal("expected a history load")
	}
	m.Update(cmd())

	if got := len(m.jobs.Items()); got != 1 {
		t.Fatalf("expected 1 history item, got %d", got)
	}
	if !strings.Contains(m.View(), "thumbnail") {
		t.Errorf("expected job kind in history, got:\n%s", m.View())
	}
}

func TestModelSignOut(t *testing.T) {
	manager, identity := signedIn(t, models.PlanFree, 2)
	m := newTestModel(t, Options{Auth: manager})

	_, cmd := m.Update(keyMsg("o"))
	if cmd == nil {
		t.Fatal("expected sign-out command")
	}
	m.Update(cmd())

	if identity.SignOutCalls() != 1 {
		t.Errorf("expected one provider sign-out, got %d", identity.SignOutCalls())
	}
	if m.snap.SignedIn() {
		t.Error("expected snapshot to be signed out")
	}
	if m.Current() != HomeView {
		t.Errorf("expected home view, got %s", m.Current())
	}
}
