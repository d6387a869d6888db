package auth

import "github.com/desertthunder/thumbx/internal/models"

// Snapshot is the read model consumed by commands, guards and views.
type Snapshot struct {
	User             *models.User
	Session          *models.Session
	Profile          *models.Profile
	Loading          bool
	ProfileLoading   bool
	IsPro            bool
	IsPremium        bool
	SubscriptionPlan string
	Credits          int
}

// Snapshot derives the plan tier and balance from s. Without a profile the plan is "free" and credits are 0.
func (s State) Snapshot() Snapshot {
	snap := Snapshot{
		User:             s.User(),
		Session:          s.Session,
		Loading:          s.Loading,
		ProfileLoading:   s.ProfileLoading,
		SubscriptionPlan: models.PlanFree.String(),
	}
	if s.Profile != nil {
		p := *s.Profile
		snap.Profile = &p
		snap.IsPro = p.SubscriptionPlan.IsPro()
		snap.IsPremium = p.SubscriptionPlan.IsPremium()
		snap.SubscriptionPlan = p.SubscriptionPlan.String()
		snap.Credits = p.Credits
	}
	return snap
}

// SignedIn reports whether a user is present.
func (s Snapshot) SignedIn() bool { return s.User != nil }
