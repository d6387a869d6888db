package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/thumbx/internal/auth"
	"github.com/desertthunder/thumbx/internal/guard"
	"github.com/desertthunder/thumbx/internal/models"
	"github.com/desertthunder/thumbx/internal/services"
	"github.com/desertthunder/thumbx/internal/shared"
	"github.com/desertthunder/thumbx/internal/tasks"
)

var errNoEngine = errors.New("studio engine unavailable")

// ViewState represents the current view in the TUI.
type ViewState int

const (
	HomeView ViewState = iota
	LabView
	VideoView
	HistoryView
	LoginView
)

func (v ViewState) String() string {
	switch v {
	case HomeView:
		return "home"
	case LabView:
		return "lab"
	case VideoView:
		return "video"
	case HistoryView:
		return "history"
	case LoginView:
		return "login"
	}
	return "unknown"
}

// HistorySource lists jobs recorded on this machine.
type HistorySource interface {
	List(criteria map[string]any) ([]*models.JobRecord, error)
}

// Options wires the dashboard to the rest of the application.
type Options struct {
	Auth    *auth.Manager
	Engine  *tasks.StudioEngine
	Jobs    services.JobSource
	History HistorySource
	Poll    tasks.PollerOptions
	OpenURL func(string) error
}

// Model is the dashboard state.
type Model struct {
	ctx  context.Context
	opts Options

	view    ViewState
	snap    auth.Snapshot
	authCh  chan struct{}
	unwatch func()

	labGuard     guard.Guard
	videoGuard   guard.Guard
	historyGuard guard.Guard

	menu    list.Model
	jobs    list.Model
	input   textinput.Model
	spinner spinner.Model
	help    help.Model
	keys    keyMap

	busy    bool
	modal   bool
	poller  *tasks.JobPoller
	updates chan tasks.ProgressUpdate
	status  models.JobStatus
	events  []string
	result  *tasks.ActionResult

	notice string
	err    error
	width  int
	height int
}

// NewModel creates the dashboard and subscribes it to auth changes. Call [Model.Close] when the program exits.
func NewModel(ctx context.Context, opts Options) *Model {
	m := &Model{
		ctx:          ctx,
		opts:         opts,
		view:         HomeView,
		authCh:       make(chan struct{}, 1),
		labGuard:     guard.Guard{Variant: guard.Soft},
		videoGuard:   guard.Guard{Variant: guard.Hard, RequiresPro: true},
		historyGuard: guard.Guard{Variant: guard.Redirect},
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:         help.New(),
		keys:         newKeyMap(),
		width:        80,
		height:       24,
		status:       models.JobUnknown,
	}

	m.menu = list.New(homeMenu(), list.NewDefaultDelegate(), 0, 0)
	m.menu.Title = "thumbx"
	m.menu.SetShowHelp(false)
	m.jobs = list.New(nil, list.NewDefaultDelegate(), 0, 0)
	m.jobs.Title = "Job History"
	m.jobs.SetShowHelp(false)
	m.input = textinput.New()
	m.input.CharLimit = 500
	m.resize()

	if opts.Auth != nil {
		m.snap = opts.Auth.Snapshot()
		m.unwatch = opts.Auth.Subscribe(func(auth.Snapshot) {
			select {
			case m.authCh <- struct{}{}:
			default:
			}
		})
	}
	return m
}

// Close stops the auth subscription and any running poller.
func (m *Model) Close() {
	if m.unwatch != nil {
		m.unwatch()
	}
	if m.poller != nil {
		m.poller.Stop()
	}
}

// Init resolves the session and starts listening for auth changes.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.initAuth(), m.waitForAuth(), m.spinner.Tick)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case authChangedMsg:
		m.syncAuth()
		return m, m.waitForAuth()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case actionDoneMsg:
		return m.handleActionDone(msg)

	case pollMsg:
		m.handlePoll(tasks.ProgressUpdate(msg))
		return m, m.waitForPoll()

	case pollDoneMsg:
		return m, nil

	case historyMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		items := make([]list.Item, len(msg.jobs))
		for i, job := range msg.jobs {
			items[i] = jobItem{job: job}
		}
		return m, m.jobs.SetItems(items)

	case signedOutMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("Signed out locally: %v", msg.err)
		}
		m.view = HomeView
		m.syncAuth()
		return m, nil

	case noticeMsg:
		m.notice = string(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}

	return m.updateComponents(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.modal {
		return m.renderStatusModal()
	}

	var body string
	switch m.view {
	case HomeView:
		body = m.renderHome()
	case LabView:
		out := m.labGuard.Decide(m.snap.Loading, m.snap.User, m.snap.IsPro)
		body = m.labGuard.Render(out.State, m.renderLab(), m.width, m.contentHeight())
	case VideoView:
		out := m.videoGuard.Decide(m.snap.Loading, m.snap.User, m.snap.IsPro)
		body = m.videoGuard.Render(out.State, m.renderVideo(), m.width, m.contentHeight())
	case HistoryView:
		out := m.historyGuard.Decide(m.snap.Loading, m.snap.User, m.snap.IsPro)
		body = m.historyGuard.Render(out.State, m.renderHistory(), m.width, m.contentHeight())
	case LoginView:
		body = m.renderLogin()
	}

	parts := []string{m.renderHeader(), body}
	if m.notice != "" {
		parts = append(parts, styles.notice.Render(m.notice))
	}
	if m.err != nil {
		parts = append(parts, styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
	}
	parts = append(parts, m.renderHelp())
	return strings.Join(parts, "\n\n")
}

// Current returns the active view.
func (m *Model) Current() ViewState { return m.view }

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.modal {
		return m.handleModalKeys(msg)
	}

	if m.input.Focused() {
		switch {
		case key.Matches(msg, m.keys.back):
			m.input.Blur()
			m.view = HomeView
			return m, nil
		case key.Matches(msg, m.keys.enter):
			return m, m.submit()
		case msg.String() == "ctrl+c":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.dismiss):
		m.notice = ""
		m.err = nil
		return m, nil
	case key.Matches(msg, m.keys.back):
		m.view = HomeView
		return m, nil
	case key.Matches(msg, m.keys.login):
		if !m.snap.SignedIn() {
			m.view = LoginView
		}
		return m, nil
	case key.Matches(msg, m.keys.signOut):
		if m.snap.SignedIn() {
			return m, m.signOut()
		}
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		if m.snap.SignedIn() {
			return m, m.refreshProfile()
		}
		return m, nil
	case key.Matches(msg, m.keys.results):
		if m.poller != nil {
			return m, m.goToResults()
		}
	}

	if m.view == HomeView && key.Matches(msg, m.keys.enter) {
		if item, ok := m.menu.SelectedItem().(menuItem); ok {
			return m, m.navigate(item.view)
		}
		return m, nil
	}
	if (m.view == LabView || m.view == VideoView) && key.Matches(msg, m.keys.enter) {
		return m, m.navigate(m.view)
	}

	return m.updateComponents(msg)
}

func (m *Model) handleModalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.results):
		return m, m.goToResults()
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.closeModal()
	}
	return m, nil
}

// navigate switches to view, applying the redirect guard for history.
func (m *Model) navigate(view ViewState) tea.Cmd {
	m.err = nil
	switch view {
	case HistoryView:
		out := m.historyGuard.Decide(m.snap.Loading, m.snap.User, m.snap.IsPro)
		if out.Navigate == guard.RouteLogin {
			m.view = LoginView
			return nil
		}
		m.view = HistoryView
		return m.loadHistory()
	case LabView, VideoView:
		m.view = view
		g := m.labGuard
		m.input.Placeholder = "Describe your thumbnail"
		if view == VideoView {
			g = m.videoGuard
			m.input.Placeholder = "Video title"
		}
		m.input.SetValue("")
		if g.Allows(m.snap.Loading, m.snap.User, m.snap.IsPro) {
			return m.input.Focus()
		}
		return nil
	default:
		m.view = view
		return nil
	}
}

func (m *Model) submit() tea.Cmd {
	if m.busy {
		return nil
	}
	if m.opts.Engine == nil {
		m.err = errNoEngine
		return nil
	}

	text := strings.TrimSpace(m.input.Value())
	action := tasks.Action{Kind: models.KindThumbnail, Prompt: text}
	if m.view == VideoView {
		action = tasks.Action{Kind: models.KindVideo, Title: text}
	}

	m.busy = true
	m.err = nil
	engine, ctx := m.opts.Engine, m.ctx
	return func() tea.Msg {
		res, err := engine.Run(ctx, nil, action)
		return actionDoneMsg{kind: action.Kind, result: res, err: err}
	}
}

func (m *Model) handleActionDone(msg actionDoneMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	if msg.err != nil {
		m.err = msg.err
		return m, nil
	}

	m.result = msg.result
	m.input.SetValue("")
	m.syncAuth()

	if msg.kind == models.KindVideo && msg.result.Webhook.Kind == services.ResultAccepted {
		m.input.Blur()
		return m, m.startPoller()
	}
	m.notice = actionNotice(msg.result)
	return m, nil
}

func (m *Model) startPoller() tea.Cmd {
	if m.opts.Jobs == nil || m.snap.User == nil {
		m.notice = "Video submitted. Track it with `thumbx jobs watch`."
		return nil
	}
	if m.poller != nil {
		m.poller.Stop()
	}

	m.updates = make(chan tasks.ProgressUpdate, 16)
	m.poller = tasks.NewJobPoller(m.opts.Jobs, m.snap.User.ID, m.opts.Poll)
	m.status = models.JobUnknown
	m.events = nil
	m.modal = true

	if err := m.poller.Start(m.ctx, m.updates); err != nil {
		m.modal = false
		m.err = err
		return nil
	}
	return m.waitForPoll()
}

func (m *Model) handlePoll(u tasks.ProgressUpdate) {
	switch u.Phase {
	case tasks.Poll:
		return
	case tasks.StatusChanged, tasks.Complete, tasks.Failed:
		if m.poller != nil {
			m.status = m.poller.Status()
		}
	}
	m.events = append(m.events, u.Message)
	if len(m.events) > 5 {
		m.events = m.events[len(m.events)-5:]
	}
}

func (m *Model) closeModal() {
	m.modal = false
	if m.poller == nil {
		return
	}
	m.poller.Stop()
	if !m.poller.Status().IsTerminal() {
		m.notice = "You may close this, processing continues in the background."
	}
}

// goToResults opens the job's result URL, or the history view when there is none yet.
func (m *Model) goToResults() tea.Cmd {
	target := m.poller.ResultsTarget()
	if target == tasks.ResultsRoute || m.opts.OpenURL == nil {
		m.closeModal()
		return m.navigate(HistoryView)
	}
	open := m.opts.OpenURL
	return func() tea.Msg {
		if err := open(target); err != nil {
			return noticeMsg(fmt.Sprintf("Open %s in your browser", target))
		}
		return noticeMsg("Opened results in your browser")
	}
}

func (m *Model) waitForPoll() tea.Cmd {
	updates, poller := m.updates, m.poller
	if poller == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case u := <-updates:
			return pollMsg(u)
		case <-poller.Done():
			select {
			case u := <-updates:
				return pollMsg(u)
			default:
				return pollDoneMsg{}
			}
		}
	}
}

func (m *Model) initAuth() tea.Cmd {
	if m.opts.Auth == nil {
		return nil
	}
	manager, ctx := m.opts.Auth, m.ctx
	return func() tea.Msg {
		manager.Initialize(ctx)
		return authChangedMsg{}
	}
}

func (m *Model) waitForAuth() tea.Cmd {
	ch := m.authCh
	return func() tea.Msg {
		<-ch
		return authChangedMsg{}
	}
}

func (m *Model) syncAuth() {
	if m.opts.Auth == nil {
		return
	}
	m.snap = m.opts.Auth.Snapshot()
	if m.view == HistoryView {
		if out := m.historyGuard.Decide(m.snap.Loading, m.snap.User, m.snap.IsPro); out.Navigate == guard.RouteLogin {
			m.view = LoginView
		}
	}
	if m.view == LoginView && m.snap.SignedIn() {
		m.view = HomeView
	}
}

func (m *Model) signOut() tea.Cmd {
	manager, ctx := m.opts.Auth, m.ctx
	return func() tea.Msg {
		return signedOutMsg{err: manager.SignOut(ctx)}
	}
}

func (m *Model) refreshProfile() tea.Cmd {
	manager, ctx := m.opts.Auth, m.ctx
	return func() tea.Msg {
		if err := manager.RefreshProfile(ctx); err != nil {
			return noticeMsg(fmt.Sprintf("Profile refresh failed: %v", err))
		}
		return noticeMsg("Profile refreshed")
	}
}

func (m *Model) loadHistory() tea.Cmd {
	if m.opts.History == nil || m.snap.User == nil {
		return nil
	}
	history, userID := m.opts.History, m.snap.User.ID
	return func() tea.Msg {
		jobs, err := history.List(map[string]any{"user_id": userID, "limit": 50})
		return historyMsg{jobs: jobs, err: err}
	}
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case HomeView:
		m.menu, cmd = m.menu.Update(msg)
	case HistoryView:
		m.jobs, cmd = m.jobs.Update(msg)
	}
	return m, cmd
}

func (m *Model) resize() {
	m.menu.SetSize(m.width-4, m.contentHeight())
	m.jobs.SetSize(m.width-4, m.contentHeight())
	m.input.Width = max(m.width-10, 20)
	m.help.Width = m.width
}

func (m *Model) contentHeight() int {
	return max(m.height-8, 10)
}

func actionNotice(res *tasks.ActionResult) string {
	if res == nil || res.Webhook == nil {
		return "Submitted"
	}
	switch res.Webhook.Kind {
	case services.ResultImages:
		return fmt.Sprintf("Generated %d image(s). Download with `thumbx jobs download`.", len(res.Webhook.Images))
	case services.ResultAnalysis:
		return shared.Truncate(res.Webhook.Analysis, 200)
	}
	return "Submitted"
}
