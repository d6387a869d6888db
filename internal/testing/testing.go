// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/thumbx/internal/models"
	"github.com/desertthunder/thumbx/internal/shared"
)

// MockIdentity is a test double for [services.IdentityProvider].
type MockIdentity struct {
	mu           sync.Mutex
	session      *models.Session
	sessionErr   error
	signOutErr   error
	listeners    map[int]func(models.AuthEvent, *models.Session)
	nextID       int
	sessionCalls int
	signOutCalls int
}

// NewMockIdentity returns a provider that reports session (which may be nil) from CurrentSession.
func NewMockIdentity(session *models.Session, sessionErr error) *MockIdentity {
	return &MockIdentity{session: session, sessionErr: sessionErr, listeners: map[int]func(models.AuthEvent, *models.Session){}}
}

func (m *MockIdentity) CurrentSession(ctx context.Context) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionCalls++
	if m.sessionErr != nil {
		return nil, m.sessionErr
	}
	return m.session, nil
}

func (m *MockIdentity) Subscribe(fn func(models.AuthEvent, *models.Session)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// SignOut emits SIGNED_OUT unless a sign-out error was configured.
func (m *MockIdentity) SignOut(ctx context.Context) error {
	m.mu.Lock()
	m.signOutCalls++
	err := m.signOutErr
	m.mu.Unlock()

	if err != nil {
		return err
	}
	m.Emit(models.EventSignedOut, nil)
	return nil
}

// FailSignOut makes SignOut return err without emitting.
func (m *MockIdentity) FailSignOut(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signOutErr = err
}

// Emit delivers event to every subscriber.
func (m *MockIdentity) Emit(event models.AuthEvent, session *models.Session) {
	m.mu.Lock()
	fns := make([]func(models.AuthEvent, *models.Session), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(event, session)
	}
}

func (m *MockIdentity) Listeners() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

func (m *MockIdentity) SessionCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionCalls
}

func (m *MockIdentity) SignOutCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signOutCalls
}

// MockProfiles is a test double for [services.ProfileSource].
//
// When Gate is set, every call blocks until a value is sent on it (or ctx ends), which lets tests hold a fetch in flight.
type MockProfiles struct {
	mu       sync.Mutex
	profiles map[string]*models.Profile
	err      error
	calls    int
	Gate     chan struct{}
	Started  chan string
}

func NewMockProfiles(profiles ...*models.Profile) *MockProfiles {
	m := &MockProfiles{profiles: map[string]*models.Profile{}}
	for _, p := range profiles {
		m.profiles[p.ID] = p
	}
	return m
}

// SetErr makes subsequent calls fail with err. nil restores normal behavior.
func (m *MockProfiles) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Set replaces the stored profile for p.ID.
func (m *MockProfiles) Set(p *models.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
}

func (m *MockProfiles) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	m.mu.Lock()
	m.calls++
	gate, started := m.Gate, m.Started
	m.mu.Unlock()

	if started != nil {
		started <- userID
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrProfileNotFound, userID)
	}
	cp := *p
	return &cp, nil
}

func (m *MockProfiles) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// JobStep is one scripted answer from [MockJobs]. A zero Status with no Err means no row.
type JobStep struct {
	Status models.JobStatus
	Err    error
}

// MockJobs is a test double for [services.JobSource] that replays Steps in order.
// After the last step it keeps returning the last one.
type MockJobs struct {
	mu     sync.Mutex
	steps  []JobStep
	calls  int
	Notify chan int
}

func NewMockJobs(steps ...JobStep) *MockJobs {
	return &MockJobs{steps: steps}
}

func (m *MockJobs) LatestJob(ctx context.Context, userID string) (*models.Job, error) {
	m.mu.Lock()
	idx := min(m.calls, len(m.steps)-1)
	m.calls++
	n := m.calls
	var step JobStep
	if idx >= 0 {
		step = m.steps[idx]
	}
	notify := m.Notify
	m.mu.Unlock()

	if notify != nil {
		select {
		case notify <- n:
		default:
		}
	}

	if step.Err != nil {
		return nil, step.Err
	}
	if step.Status == "" {
		return nil, fmt.Errorf("%w: user %s", shared.ErrJobNotFound, userID)
	}
	return &models.Job{ID: "job-" + userID, UserID: userID, Status: step.Status}, nil
}

func (m *MockJobs) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
