package models

import (
	"time"

	"golang.org/x/oauth2"
)

// AuthEvent names a change reported by the identity provider.
type AuthEvent string

const (
	EventSignedIn         AuthEvent = "SIGNED_IN"
	EventSignedOut        AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed   AuthEvent = "TOKEN_REFRESHED"
	EventInitialSession   AuthEvent = "INITIAL_SESSION"
	EventUserUpdated      AuthEvent = "USER_UPDATED"
	EventPasswordRecovery AuthEvent = "PASSWORD_RECOVERY"
)

// User is the identity portion of a session.
type User struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

// Session is a read-only projection of the identity provider's session.
type Session struct {
	User         User      `json:"user"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	// Bypass marks a developer session fabricated without the provider. It carries no usable token.
	Bypass bool `json:"-"`
}

// UserID returns the session owner's id, or "" for a nil session.
func (s *Session) UserID() string {
	if s == nil {
		return ""
	}
	return s.User.ID
}

// Token converts the session into an [oauth2.Token].
func (s *Session) Token() *oauth2.Token {
	tt := s.TokenType
	if tt == "" {
		tt = "bearer"
	}
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    tt,
		Expiry:       s.ExpiresAt,
	}
}

// WithToken returns a copy of s carrying the tokens from t. Identity fields are untouched.
func (s Session) WithToken(t *oauth2.Token) Session {
	s.AccessToken = t.AccessToken
	if t.RefreshToken != "" {
		s.RefreshToken = t.RefreshToken
	}
	if t.TokenType != "" {
		s.TokenType = t.TokenType
	}
	s.ExpiresAt = t.Expiry
	return s
}

// Expired reports whether the access token has expired at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
