// Package services talks to the hosted backends thumbx depends on and defines the interfaces the core consumes.
//
// # Interfaces
//
// The auth and polling code never sees HTTP. It depends on:
//   - [IdentityProvider] : current session, auth event subscription, sign-out
//   - [ProfileSource] : billing profile by user id
//   - [JobSource] : most recent job row for a user
//
// # Supabase Auth
//
// [SupabaseAuth] implements [IdentityProvider] against the GoTrue endpoints. Password and PKCE
// (Google) sign-in are supported. Token refresh goes through an [oauth2.ReuseTokenSource], so any
// client built with [SupabaseAuth.HTTPClient] refreshes transparently and listeners see TOKEN_REFRESHED.
//
// # REST
//
// [RestClient] reads the profiles and video_jobs tables through PostgREST. It implements
// [ProfileSource] and [JobSource].
//
// # Webhooks
//
// [WebhookService] posts paid-action requests to n8n. Response bodies are loosely shaped, so
// [ParseWebhookResult] probes known field names in a fixed order and returns a [WebhookResult]
// or [shared.ErrUnreadableResponse].
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrInvalidCredentials] : password grant rejected
//   - [shared.ErrRefreshFailed] : refresh token rejected
//   - [shared.ErrProfileNotFound], [shared.ErrJobNotFound] : query returned no row
//   - [shared.ErrAPIRequest] : non-2xx status
//   - [shared.ErrWebhookFailed] : webhook reported status "error"
package services
