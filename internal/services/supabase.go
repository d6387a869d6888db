package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/thumbx/internal/models"
	"github.com/desertthunder/thumbx/internal/shared"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const (
	authPath      = "/auth/v1"
	refreshMargin = 30 * time.Second
)

// SessionPersister keeps the session across process restarts. Load returns (nil, nil) when nothing is stored.
type SessionPersister interface {
	Save(session *models.Session) error
	Load() (*models.Session, error)
	Clear() error
}

// APIError is a non-2xx response from a hosted API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v: status %d", shared.ErrAPIRequest, e.StatusCode)
	}
	return fmt.Sprintf("%v: status %d: %s", shared.ErrAPIRequest, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return shared.ErrAPIRequest }

// tokenResponse is the GoTrue /token payload.
type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	ExpiresAt    int64       `json:"expires_at"`
	RefreshToken string      `json:"refresh_token"`
	User         models.User `json:"user"`
}

// errorBody covers the error shapes GoTrue and PostgREST return.
type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (b errorBody) text() string {
	for _, s := range []string{b.ErrorDescription, b.Msg, b.Message, b.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// accessClaims are the fields thumbx reads from a project access token.
type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SupabaseAuth implements [IdentityProvider] against the GoTrue API of a Supabase project.
type SupabaseAuth struct {
	baseURL     string
	anonKey     string
	redirectURI string
	httpClient  *http.Client
	store       SessionPersister
	logger      *log.Logger
	events      Broadcaster
	now         func() time.Time

	mu      sync.Mutex
	session *models.Session
	tokens  oauth2.TokenSource
	loaded  bool
}

// NewSupabaseAuth creates the auth client. store may be nil, in which case sessions live only in memory.
func NewSupabaseAuth(conf shared.SupabaseConfig, store SessionPersister, client *http.Client, logger *log.Logger) (*SupabaseAuth, error) {
	if conf.URL == "" {
		return nil, fmt.Errorf("%w: supabase url", shared.ErrMissingConfig)
	}
	if conf.AnonKey == "" {
		return nil, fmt.Errorf("%w: supabase anon key", shared.ErrMissingCredentials)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &SupabaseAuth{
		baseURL:     strings.TrimRight(conf.URL, "/"),
		anonKey:     conf.AnonKey,
		redirectURI: conf.RedirectURI,
		httpClient:  client,
		store:       store,
		logger:      shared.WithLogger(logger, "service", "auth"),
		now:         time.Now,
	}, nil
}

// Subscribe registers fn for auth events.
func (a *SupabaseAuth) Subscribe(fn AuthListener) func() {
	return a.events.Subscribe(fn)
}

// CurrentSession returns the session held in memory, restoring it from the store on first use.
// An expired session is refreshed before it is returned.
func (a *SupabaseAuth) CurrentSession(ctx context.Context) (*models.Session, error) {
	a.mu.Lock()
	if !a.loaded && a.store != nil {
		a.loaded = true
		stored, err := a.store.Load()
		if err != nil {
			a.mu.Unlock()
			return nil, fmt.Errorf("failed to load stored session: %w", err)
		}
		if stored != nil {
			a.setSessionLocked(stored)
		}
	}
	current := a.session
	a.mu.Unlock()

	if current == nil {
		return nil, nil
	}
	if !current.Expired(a.now().Add(refreshMargin)) {
		s := *current
		return &s, nil
	}

	refreshed, err := a.Refresh(ctx)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			a.logger.Warn("stored session rejected, clearing", "status", apiErr.StatusCode)
			a.clear()
		}
		return nil, err
	}
	return refreshed, nil
}

// SignInWithPassword exchanges an email and password for a session and emits SIGNED_IN.
func (a *SupabaseAuth) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", shared.ErrMissingArgument)
	}

	resp, err := a.grant(ctx, "password", map[string]string{"email": email, "password": password})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusUnauthorized) {
			return nil, fmt.Errorf("%w: %s", shared.ErrInvalidCredentials, apiErr.Message)
		}
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	return a.signedIn(resp)
}

// AuthorizeURL builds the provider sign-in URL for the PKCE flow.
// The challenge is derived from verifier, which must be kept for [SupabaseAuth.ExchangeCode].
func (a *SupabaseAuth) AuthorizeURL(provider, verifier, state string) (string, error) {
	if a.redirectURI == "" {
		return "", fmt.Errorf("%w: supabase redirect uri", shared.ErrMissingConfig)
	}

	redirect, err := url.Parse(a.redirectURI)
	if err != nil {
		return "", fmt.Errorf("%w: redirect uri: %w", shared.ErrInvalidConfig, err)
	}
	if state != "" {
		q := redirect.Query()
		q.Set("state", state)
		redirect.RawQuery = q.Encode()
	}

	q := url.Values{}
	q.Set("provider", provider)
	q.Set("redirect_to", redirect.String())
	q.Set("code_challenge", oauth2.S256ChallengeFromVerifier(verifier))
	q.Set("code_challenge_method", "s256")

	return a.baseURL + authPath + "/authorize?" + q.Encode(), nil
}

// ExchangeCode completes the PKCE flow and emits SIGNED_IN.
func (a *SupabaseAuth) ExchangeCode(ctx context.Context, code, verifier string) (*models.Session, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	resp, err := a.grant(ctx, "pkce", map[string]string{"auth_code": code, "code_verifier": verifier})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	return a.signedIn(resp)
}

// Refresh trades the refresh token for new tokens and emits TOKEN_REFRESHED.
func (a *SupabaseAuth) Refresh(ctx context.Context) (*models.Session, error) {
	a.mu.Lock()
	current := a.session
	a.mu.Unlock()

	if current == nil || current.RefreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	resp, err := a.grant(ctx, "refresh_token", map[string]string{"refresh_token": current.RefreshToken})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}

	if resp.User.ID == "" {
		resp.User = current.User
	}
	next, err := a.toSession(resp)
	if err != nil {
		return nil, err
	}

	a.commit(next)
	a.logger.Debug("token refreshed", "user", next.User.ID, "expires", next.ExpiresAt)

	s := *next
	a.events.Emit(models.EventTokenRefreshed, &s)
	return &s, nil
}

// SignOut revokes the session with the provider and clears it locally.
//
// The local copy is always removed. SIGNED_OUT is only emitted when the provider call succeeds or
// reports the session as already gone.
func (a *SupabaseAuth) SignOut(ctx context.Context) error {
	a.mu.Lock()
	current := a.session
	a.mu.Unlock()

	var remoteErr error
	if current != nil && current.AccessToken != "" && !current.Bypass {
		remoteErr = a.do(ctx, http.MethodPost, authPath+"/logout?scope=local", nil, current.AccessToken, nil)

		var apiErr *APIError
		if errors.As(remoteErr, &apiErr) {
			switch apiErr.StatusCode {
			case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
				remoteErr = nil
			}
		}
	}

	a.clear()
	if remoteErr != nil {
		return fmt.Errorf("sign out failed: %w", remoteErr)
	}

	a.events.Emit(models.EventSignedOut, nil)
	return nil
}

// Token implements [oauth2.TokenSource] for the active session, refreshing it when it is near expiry.
func (a *SupabaseAuth) Token() (*oauth2.Token, error) {
	a.mu.Lock()
	src := a.tokens
	a.mu.Unlock()

	if src == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return src.Token()
}

// HTTPClient returns a client that authorizes every request with the active session's access token.
func (a *SupabaseAuth) HTTPClient() *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{Source: a, Base: a.httpClient.Transport},
		Timeout:   a.httpClient.Timeout,
	}
}

func (a *SupabaseAuth) signedIn(resp *tokenResponse) (*models.Session, error) {
	session, err := a.toSession(resp)
	if err != nil {
		return nil, err
	}
	if session.User.ID == "" {
		return nil, fmt.Errorf("%w: token carries no subject", shared.ErrAuthFailed)
	}

	a.commit(session)
	a.logger.Info("signed in", "user", session.User.ID, "email", session.User.Email)

	s := *session
	a.events.Emit(models.EventSignedIn, &s)
	return &s, nil
}

// commit stores session in memory and in the persister.
func (a *SupabaseAuth) commit(session *models.Session) {
	a.mu.Lock()
	a.setSessionLocked(session)
	a.loaded = true
	a.mu.Unlock()

	if a.store != nil {
		if err := a.store.Save(session); err != nil {
			a.logger.Warn("failed to persist session", "error", err)
		}
	}
}

func (a *SupabaseAuth) setSessionLocked(session *models.Session) {
	a.session = session
	a.tokens = oauth2.ReuseTokenSourceWithExpiry(session.Token(), &refreshSource{auth: a}, refreshMargin)
}

func (a *SupabaseAuth) clear() {
	a.mu.Lock()
	a.session = nil
	a.tokens = nil
	a.loaded = true
	a.mu.Unlock()

	if a.store != nil {
		if err := a.store.Clear(); err != nil {
			a.logger.Warn("failed to clear stored session", "error", err)
		}
	}
}

func (a *SupabaseAuth) toSession(resp *tokenResponse) (*models.Session, error) {
	session := &models.Session{
		User:         resp.User,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
	}

	switch {
	case resp.ExpiresAt > 0:
		session.ExpiresAt = time.Unix(resp.ExpiresAt, 0)
	case resp.ExpiresIn > 0:
		session.ExpiresAt = a.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}

	if session.User.ID != "" && !session.ExpiresAt.IsZero() {
		return session, nil
	}

	claims, err := parseAccessClaims(resp.AccessToken)
	if err != nil {
		if session.User.ID == "" {
			return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
		}
		return session, nil
	}

	if session.User.ID == "" {
		session.User.ID = claims.Subject
	}
	if session.User.Email == "" {
		session.User.Email = claims.Email
	}
	if session.ExpiresAt.IsZero() && claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

// parseAccessClaims reads the claims of a project token without checking its signature.
func parseAccessClaims(token string) (*accessClaims, error) {
	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w", err)
	}
	return &claims, nil
}

func (a *SupabaseAuth) grant(ctx context.Context, grantType string, body any) (*tokenResponse, error) {
	var resp tokenResponse
	if err := a.do(ctx, http.MethodPost, authPath+"/token?grant_type="+grantType, body, "", &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response without access token", shared.ErrAuthFailed)
	}
	return &resp, nil
}

// do performs a request against the auth API. bearer defaults to the anon key.
func (a *SupabaseAuth) do(ctx context.Context, method, path string, body any, bearer string, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if bearer == "" {
		bearer = a.anonKey
	}
	req.Header.Set("apikey", a.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// refreshSource is the fallback [oauth2.TokenSource] behind the reuse cache.
type refreshSource struct {
	auth *SupabaseAuth
}

func (r *refreshSource) Token() (*oauth2.Token, error) {
	session, err := r.auth.Refresh(context.Background())
	if err != nil {
		return nil, err
	}
	return session.Token(), nil
}

func readError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body errorBody
	msg := ""
	if err := json.Unmarshal(data, &body); err == nil {
		msg = body.text()
	} else {
		msg = strings.TrimSpace(string(data))
	}
	return &APIError{StatusCode: resp.StatusCode, Message: shared.Truncate(msg, 200)}
}
