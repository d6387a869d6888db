package auth

import (
	"sync"

	"github.com/desertthunder/thumbx/internal/models"
)

// State is the raw authentication state. Values handed out by [Store] are copies and must be treated as read-only.
type State struct {
	Session        *models.Session
	Profile        *models.Profile
	CachedOwner    string // user id the held profile was fetched for; empty after invalidation or a fallback
	Loading        bool   // true only until the first session check finishes
	ProfileLoading bool
	Version        uint64
}

// User returns the signed-in user or nil.
func (s State) User() *models.User {
	if s.Session == nil {
		return nil
	}
	u := s.Session.User
	return &u
}

// UserID returns the signed-in user's id or "".
func (s State) UserID() string {
	return s.Session.UserID()
}

// Action is a state transition accepted by [Store.Dispatch].
type Action interface {
	apply(*State) bool
}

// SignedIn replaces the session. A different user drops the held profile.
type SignedIn struct{ Session *models.Session }

// SignedOut clears everything and ends the initial loading phase.
type SignedOut struct{}

// TokenRefreshed swaps token fields for the current user. Identity and profile are untouched.
type TokenRefreshed struct{ Session *models.Session }

// ProfileLoading marks a profile fetch for which nothing is cached yet.
type ProfileLoading struct{}

// ProfileLoaded stores a profile for UserID. It is dropped if UserID is no longer signed in.
// Owned records UserID as the cached owner; fallback profiles leave the owner empty.
type ProfileLoaded struct {
	UserID  string
	Profile models.Profile
	Owned   bool
}

// ProfileSettled ends a profile fetch regardless of its outcome.
type ProfileSettled struct{}

// OwnerInvalidated forgets the cached owner so the next fetch for the same user goes to the network.
type OwnerInvalidated struct{}

// CreditsDecremented lowers the held credit balance, never below zero.
type CreditsDecremented struct{ Amount int }

// InitFinished ends the initial loading phase.
type InitFinished struct{}

func (a SignedIn) apply(s *State) bool {
	if a.Session == nil {
		return false
	}
	if s.UserID() != a.Session.UserID() {
		s.Profile = nil
		s.CachedOwner = ""
	}
	cp := *a.Session
	s.Session = &cp
	return true
}

func (SignedOut) apply(s *State) bool {
	s.Session = nil
	s.Profile = nil
	s.CachedOwner = ""
	s.Loading = false
	s.ProfileLoading = false
	return true
}

func (a TokenRefreshed) apply(s *State) bool {
	if s.Session == nil || a.Session == nil || s.Session.UserID() != a.Session.UserID() {
		return false
	}
	next := s.Session.WithToken(a.Session.Token())
	s.Session = &next
	return true
}

func (ProfileLoading) apply(s *State) bool {
	if s.Profile != nil || s.ProfileLoading {
		return false
	}
	s.ProfileLoading = true
	return true
}

func (a ProfileLoaded) apply(s *State) bool {
	if a.UserID == "" || s.UserID() != a.UserID {
		return false
	}
	p := a.Profile
	p.ID = a.UserID
	p.Credits = max(p.Credits, 0)
	s.Profile = &p
	if a.Owned {
		s.CachedOwner = a.UserID
	}
	return true
}

func (ProfileSettled) apply(s *State) bool {
	if !s.ProfileLoading {
		return false
	}
	s.ProfileLoading = false
	return true
}

func (OwnerInvalidated) apply(s *State) bool {
	if s.CachedOwner == "" {
		return false
	}
	s.CachedOwner = ""
	return true
}

func (a CreditsDecremented) apply(s *State) bool {
	if s.Profile == nil {
		return false
	}
	next := s.Profile.WithCredits(a.Amount)
	s.Profile = &next
	return true
}

func (InitFinished) apply(s *State) bool {
	if !s.Loading {
		return false
	}
	s.Loading = false
	return true
}

// Store serializes actions over a [State] and notifies subscribers of every change.
type Store struct {
	mu          sync.Mutex
	state       State
	next        int
	subscribers map[int]func(State)
	order       []int
}

// NewStore returns a store in the initial loading state.
func NewStore() *Store {
	return &Store{state: State{Loading: true}, subscribers: map[int]func(State){}}
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies a and reports whether the state changed.
//
// Subscribers run after the lock is released, so they may dispatch. Under concurrent dispatch they can
// observe states out of order; compare [State.Version] to drop older ones.
func (s *Store) Dispatch(a Action) bool {
	s.mu.Lock()
	if !a.apply(&s.state) {
		s.mu.Unlock()
		return false
	}
	s.state.Version++
	st := s.state
	fns := make([]func(State), 0, len(s.order))
	for _, id := range s.order {
		if fn, ok := s.subscribers[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
	return true
}

// Subscribe registers fn for state changes and returns a func that removes it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	s.subscribers[id] = fn
	s.order = append(s.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subscribers, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}
