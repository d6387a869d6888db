// Package server provides HTTP routing, middleware, and the OAuth callback used by `thumbx auth login --provider`.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] completes the PKCE authorization code flow against the identity provider.
//
// The handler validates the state parameter (CSRF protection), hands the code to an [Exchanger], and sends the
// resulting session through a channel. It only processes one callback to prevent replay attacks.
//
// [CallbackServer] runs the handler on the configured host and port for the duration of a login and shuts down
// once a result arrives.
package server
