package services

import (
	"context"
	"sync"

	"github.com/desertthunder/thumbx/internal/models"
)

// AuthListener receives identity provider events. session is nil for SIGNED_OUT.
type AuthListener = func(event models.AuthEvent, session *models.Session)

// IdentityProvider owns the authenticated identity.
type IdentityProvider interface {
	// CurrentSession returns the existing session, or nil when signed out.
	CurrentSession(ctx context.Context) (*models.Session, error)

	// Subscribe registers fn for auth events and returns a func that removes it.
	Subscribe(fn AuthListener) (unsubscribe func())

	// SignOut ends the session with the provider.
	SignOut(ctx context.Context) error
}

// ProfileSource reads billing profiles. Returns [shared.ErrProfileNotFound] for a missing row.
type ProfileSource interface {
	Profile(ctx context.Context, userID string) (*models.Profile, error)
}

// JobSource reads the most recent job for a user. Returns [shared.ErrJobNotFound] when there is none.
type JobSource interface {
	LatestJob(ctx context.Context, userID string) (*models.Job, error)
}

// Broadcaster fans auth events out to subscribers in registration order.
type Broadcaster struct {
	mu        sync.Mutex
	next      int
	listeners map[int]AuthListener
	order     []int
}

// Subscribe registers fn. The returned func is safe to call more than once.
func (b *Broadcaster) Subscribe(fn AuthListener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.listeners == nil {
		b.listeners = make(map[int]AuthListener)
	}
	id := b.next
	b.next++
	b.listeners[id] = fn
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.listeners, id)
		})
	}
}

// Emit calls every listener registered at the time of the call. Listeners run outside the lock.
func (b *Broadcaster) Emit(event models.AuthEvent, session *models.Session) {
	b.mu.Lock()
	fns := make([]AuthListener, 0, len(b.listeners))
	kept := b.order[:0]
	for _, id := range b.order {
		if fn, ok := b.listeners[id]; ok {
			fns = append(fns, fn)
			kept = append(kept, id)
		}
	}
	b.order = kept
	b.mu.Unlock()

	for _, fn := range fns {
		fn(event, session)
	}
}

// Len returns the number of active listeners.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
