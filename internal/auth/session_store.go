package auth

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/thumbx/internal/models"
	"github.com/desertthunder/thumbx/internal/services"
	"github.com/desertthunder/thumbx/internal/shared"
)

// SessionStore mirrors the identity provider's session into a [Store].
type SessionStore struct {
	provider services.IdentityProvider
	store    *Store
	profiles *ProfileCache
	logger   *log.Logger
	redirect func()

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	unsub  func()
	wg     sync.WaitGroup
}

// NewSessionStore creates a session store. redirect runs after every SignOut and may be nil.
func NewSessionStore(provider services.IdentityProvider, store *Store, profiles *ProfileCache, redirect func(), logger *log.Logger) *SessionStore {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SessionStore{
		provider: provider,
		store:    store,
		profiles: profiles,
		logger:   shared.WithLogger(logger, "component", "session"),
		redirect: redirect,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Initialize subscribes to provider events and loads the existing session. Only the first call does anything.
//
// Provider errors are logged and the store proceeds signed out. Loading is false when Initialize returns;
// the profile fetch it starts runs in the background (see [SessionStore.Wait]).
func (s *SessionStore) Initialize(ctx context.Context) {
	s.once.Do(func() {
		s.unsub = s.provider.Subscribe(s.OnAuthEvent)
		defer s.store.Dispatch(InitFinished{})

		session, err := s.provider.CurrentSession(ctx)
		if err != nil {
			s.logger.Warn("session check failed", "error", err)
			return
		}
		if session == nil {
			s.logger.Debug("no existing session")
			return
		}

		s.store.Dispatch(SignedIn{Session: session})
		s.fetch(session.UserID())
	})
}

// OnAuthEvent applies a provider event. Events other than sign-in, sign-out and token refresh are ignored.
func (s *SessionStore) OnAuthEvent(event models.AuthEvent, session *models.Session) {
	logger := shared.WithLogger(s.logger, "event", event)

	switch event {
	case models.EventSignedOut:
		userID := s.store.State().UserID()
		s.store.Dispatch(SignedOut{})
		if userID != "" {
			s.profiles.Forget(userID)
		}
		logger.Info("signed out")
	case models.EventSignedIn:
		if session == nil || session.UserID() == "" {
			logger.Warn("sign-in event without a user")
			return
		}
		owner := s.store.State().CachedOwner
		s.store.Dispatch(SignedIn{Session: session})
		if session.UserID() != owner {
			s.fetch(session.UserID())
		}
		s.store.Dispatch(InitFinished{})
		logger.Info("signed in", "user", session.UserID())
	case models.EventTokenRefreshed:
		if session != nil {
			s.store.Dispatch(TokenRefreshed{Session: session})
			logger.Debug("token refreshed")
		}
	default:
		logger.Debug("ignoring auth event")
	}
}

// SignOut ends the provider session. When the provider fails, local state is cleared anyway.
// The redirect callback runs in every case.
func (s *SessionStore) SignOut(ctx context.Context) error {
	defer s.runRedirect()

	st := s.store.State()
	if st.Session != nil && st.Session.Bypass {
		s.OnAuthEvent(models.EventSignedOut, nil)
		return nil
	}

	err := s.provider.SignOut(ctx)
	if err != nil {
		s.logger.Error("sign out failed, clearing local state", "error", err)
		s.OnAuthEvent(models.EventSignedOut, nil)
	}
	return err
}

// Wait blocks until background profile fetches finish.
func (s *SessionStore) Wait() {
	s.wg.Wait()
}

// Close unsubscribes from the provider and cancels background fetches.
func (s *SessionStore) Close() {
	if s.unsub != nil {
		s.unsub()
	}
	s.cancel()
	s.wg.Wait()
}

func (s *SessionStore) fetch(userID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.profiles.FetchProfile(s.ctx, userID)
	}()
}

func (s *SessionStore) runRedirect() {
	if s.redirect != nil {
		s.redirect()
	}
}
