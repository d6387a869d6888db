// package guard decides whether protected content may be shown.
//
// [Evaluate] is the whole decision. Variants only change how a locked state is presented.
package guard

import "github.com/desertthunder/thumbx/internal/models"

// State is the outcome of a guard evaluation.
type State int

const (
	Loading State = iota
	LockedNoSession
	LockedInsufficientPlan
	Unlocked
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case LockedNoSession:
		return "locked_no_session"
	case LockedInsufficientPlan:
		return "locked_insufficient_plan"
	case Unlocked:
		return "unlocked"
	}
	return "unknown"
}

// Locked reports whether s hides content behind a call to action.
func (s State) Locked() bool {
	return s == LockedNoSession || s == LockedInsufficientPlan
}

// Evaluate maps the auth state onto a guard state. Loading wins, then a missing user, then the plan check.
func Evaluate(loading bool, user *models.User, requiresPro, isPro bool) State {
	switch {
	case loading:
		return Loading
	case user == nil:
		return LockedNoSession
	case requiresPro && !isPro:
		return LockedInsufficientPlan
	}
	return Unlocked
}

// Variant selects the presentation of a locked state.
type Variant int

const (
	// Soft keeps the content in place, dimmed, under a centered call to action.
	Soft Variant = iota
	// Hard replaces the content with a full paywall or login screen.
	Hard
	// Redirect sends a signed-out user to the login route and renders nothing inline.
	Redirect
)

func (v Variant) String() string {
	switch v {
	case Soft:
		return "soft"
	case Hard:
		return "hard"
	case Redirect:
		return "redirect"
	}
	return "unknown"
}

// Route names used for navigation outcomes.
const (
	RouteLogin   = "login"
	RouteUpgrade = "upgrade"
)

// Outcome is a guard decision for one variant.
type Outcome struct {
	State    State
	Navigate string // route to switch to instead of rendering; empty to render inline
}

// Guard gates a view.
type Guard struct {
	Variant     Variant
	RequiresPro bool
}

// Decide evaluates the guard. Only [Redirect] navigates, and only when there is no session.
// A redirect guard never checks the plan.
func (g Guard) Decide(loading bool, user *models.User, isPro bool) Outcome {
	requiresPro := g.RequiresPro && g.Variant != Redirect
	out := Outcome{State: Evaluate(loading, user, requiresPro, isPro)}
	if g.Variant == Redirect && out.State == LockedNoSession {
		out.Navigate = RouteLogin
	}
	return out
}

// Allows reports whether content is shown for the given auth state.
func (g Guard) Allows(loading bool, user *models.User, isPro bool) bool {
	return g.Decide(loading, user, isPro).State == Unlocked
}
