package auth

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/thumbx/internal/services"
	"github.com/desertthunder/thumbx/internal/shared"
)

// Options configures a [Manager].
type Options struct {
	Logger   *log.Logger
	Redirect func()           // called after every sign-out
	Dev      shared.DevConfig // developer bypass settings
}

// Manager is the process-wide authentication context.
type Manager struct {
	store    *Store
	sessions *SessionStore
	profiles *ProfileCache
	dev      shared.DevConfig
	logger   *log.Logger
}

// NewManager wires a store, profile cache and session store together.
func NewManager(provider services.IdentityProvider, source services.ProfileSource, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	store := NewStore()
	profiles := NewProfileCache(store, source, logger)
	return &Manager{
		store:    store,
		profiles: profiles,
		sessions: NewSessionStore(provider, store, profiles, opts.Redirect, logger),
		dev:      opts.Dev,
		logger:   shared.WithLogger(logger, "component", "auth"),
	}
}

// Initialize runs the one-time session check.
func (m *Manager) Initialize(ctx context.Context) { m.sessions.Initialize(ctx) }

// Snapshot returns the current derived state.
func (m *Manager) Snapshot() Snapshot { return m.store.State().Snapshot() }

// Subscribe calls fn with a new snapshot on every state change.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	return m.store.Subscribe(func(s State) { fn(s.Snapshot()) })
}

// SignOut signs out through the session store.
func (m *Manager) SignOut(ctx context.Context) error { return m.sessions.SignOut(ctx) }

// RefreshProfile refetches the profile for the signed-in user, bypassing the same-user check.
func (m *Manager) RefreshProfile(ctx context.Context) error { return m.profiles.RefreshProfile(ctx) }

// DecrementCredits applies an optimistic charge after a paid action succeeds.
func (m *Manager) DecrementCredits(amount int) { m.profiles.DecrementCredits(amount) }

// RequireCredits checks that the signed-in user may start an action costing cost credits.
func (m *Manager) RequireCredits(cost int, requiresPro bool) error {
	snap := m.Snapshot()
	switch {
	case !snap.SignedIn():
		return shared.ErrNoSession
	case requiresPro && !snap.IsPro:
		return fmt.Errorf("%w: current plan is %s", shared.ErrPlanRequired, snap.SubscriptionPlan)
	case snap.Credits < cost:
		return fmt.Errorf("%w: need %d, have %d", shared.ErrInsufficientCredits, cost, snap.Credits)
	}
	return nil
}

// Wait blocks until background profile fetches finish.
func (m *Manager) Wait() { m.sessions.Wait() }

// Close releases the provider subscription.
func (m *Manager) Close() { m.sessions.Close() }
