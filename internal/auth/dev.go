package auth

import (
	"fmt"
	"strings"

	"github.com/desertthunder/thumbx/internal/models"
	"github.com/desertthunder/thumbx/internal/shared"
)

// DevSignIn fabricates a signed-in session without the identity provider.
// It is refused unless bypass is enabled in the [dev] config section.
func (m *Manager) DevSignIn(email string) (*models.Session, error) {
	if !m.dev.BypassEnabled {
		return nil, shared.ErrBypassDisabled
	}
	if email = strings.TrimSpace(email); email == "" {
		email = m.dev.BypassEmail
	}
	if email == "" {
		return nil, fmt.Errorf("%w: email", shared.ErrMissingArgument)
	}

	session := &models.Session{
		User:   models.User{ID: "dev-" + shared.GenerateID(), Email: email},
		Bypass: true,
	}
	profile := models.Profile{
		ID:               session.User.ID,
		Credits:          max(m.dev.BypassCredits, 0),
		SubscriptionPlan: models.ParsePlan(m.dev.BypassPlan),
	}

	m.store.Dispatch(SignedIn{Session: session})
	m.store.Dispatch(ProfileLoaded{UserID: session.User.ID, Profile: profile, Owned: true})
	m.store.Dispatch(InitFinished{})

	m.logger.Warn("developer bypass session active", "email", email, "plan", profile.SubscriptionPlan)
	return session, nil
}
