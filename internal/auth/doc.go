// package auth holds the process-wide authentication state.
//
// A [Store] owns the state and only changes it through a closed set of actions. [SessionStore] translates
// identity provider events into those actions, [ProfileCache] loads the billing profile for the signed-in
// user, and [Manager] composes the three into the single value read by commands and the TUI.
package auth
