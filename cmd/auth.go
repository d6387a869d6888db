package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/thumbx/internal/auth"
	"github.com/desertthunder/thumbx/internal/models"
	"github.com/desertthunder/thumbx/internal/server"
	"github.com/desertthunder/thumbx/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const browserLoginTimeout = 5 * time.Minute

// statusView is the JSON shape printed by `auth status` and `profile show`.
type statusView struct {
	SignedIn  bool       `json:"signed_in"`
	UserID    string     `json:"user_id,omitempty"`
	Email     string     `json:"email,omitempty"`
	Plan      string     `json:"plan"`
	Credits   int        `json:"credits"`
	IsPro     bool       `json:"is_pro"`
	IsPremium bool       `json:"is_premium"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Bypass    bool       `json:"bypass,omitempty"`
}

func newStatusView(snap auth.Snapshot) statusView {
	v := statusView{
		SignedIn:  snap.SignedIn(),
		Plan:      snap.SubscriptionPlan,
		Credits:   snap.Credits,
		IsPro:     snap.IsPro,
		IsPremium: snap.IsPremium,
	}
	if snap.User != nil {
		v.UserID = snap.User.ID
		v.Email = snap.User.Email
	}
	if s := snap.Session; s != nil {
		v.Bypass = s.Bypass
		if !s.ExpiresAt.IsZero() {
			exp := s.ExpiresAt
			v.ExpiresAt = &exp
		}
	}
	return v
}

// AuthLogin signs in with email and password, or with --provider through the browser (PKCE).
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}
	if r.supabase == nil {
		return fmt.Errorf("%w: interactive sign-in is not available", shared.ErrServiceUnavailable)
	}

	var session *models.Session
	var err error
	if provider := cmd.String("provider"); provider != "" {
		session, err = r.browserLogin(ctx, provider, cmd.Bool("no-browser"))
	} else {
		email, password := cmd.String("email"), cmd.String("password")
		if email == "" {
			return fmt.Errorf("%w: --email (or use --provider)", shared.ErrMissingArgument)
		}
		if password == "" {
			return fmt.Errorf("%w: --password or THUMBX_PASSWORD", shared.ErrMissingArgument)
		}
		session, err = r.supabase.SignInWithPassword(ctx, email, password)
	}
	if err != nil {
		return err
	}

	r.logger.Info("signed in", "user", session.User.ID)

	snap, err := r.session(ctx)
	if err != nil {
		return err
	}
	r.writePlain("✓ Signed in as %s\n", session.User.Email)
	return r.writePlain("Plan: %s • Credits: %d\n", snap.SubscriptionPlan, snap.Credits)
}

// browserLogin runs the PKCE flow: a local callback server receives the code and exchanges it with the verifier.
func (r *Runner) browserLogin(ctx context.Context, provider string, noBrowser bool) (*models.Session, error) {
	verifier := oauth2.GenerateVerifier()
	state := shared.GenerateID()

	authURL, err := r.supabase.AuthorizeURL(provider, verifier, state)
	if err != nil {
		return nil, err
	}

	handler := server.NewOAuthHandler(func(ctx context.Context, code string) (*models.Session, error) {
		return r.supabase.ExchangeCode(ctx, code, verifier)
	}, state)
	srv, err := server.NewCallbackServer(r.config.Server, handler, r.logger)
	if err != nil {
		return nil, err
	}

	if noBrowser {
		r.writePlain("Open this URL to sign in:\n%s\n", authURL)
	} else if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
		r.writePlain("Open this URL to sign in:\n%s\n", authURL)
	} else {
		r.writePlain("Waiting for sign-in in your browser...\n")
	}

	waitCtx, cancel := context.WithTimeout(ctx, browserLoginTimeout)
	defer cancel()

	res, err := srv.Wait(waitCtx)
	if err != nil {
		return nil, err
	}
	return res.Session, nil
}

// AuthLogout signs out. The local session is cleared even when the provider call fails.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	snap, err := r.session(ctx)
	if err != nil {
		return err
	}
	if !snap.SignedIn() {
		return r.writePlain("Not signed in\n")
	}

	if err := r.manager.SignOut(ctx); err != nil {
		r.logger.Warn("provider sign-out failed, local session cleared", "error", err)
	}
	return r.writePlain("✓ Signed out %s\n", snap.User.Email)
}

// AuthStatus prints the current session, plan and credits.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	snap, err := r.session(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(newStatusView(snap), true)
	}
	return r.printStatus(snap)
}

// AuthDevLogin starts a developer bypass session. It lives only for this process and is never persisted.
func (r *Runner) AuthDevLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}
	if _, err := r.manager.DevSignIn(cmd.String("email")); err != nil {
		return err
	}

	r.writePlain("⚠ Developer bypass session (not persisted, no provider token)\n")
	return r.printStatus(r.manager.Snapshot())
}

func (r *Runner) printStatus(snap auth.Snapshot) error {
	if !snap.SignedIn() {
		r.writePlain("✗ Not signed in\n")
		return r.writePlain("Run 'thumbx auth login --email you@example.com' to sign in\n")
	}

	r.writePlain("✓ Signed in\n")
	r.writePlain("Email: %s\n", snap.User.Email)
	r.writePlain("User: %s\n", snap.User.ID)
	if s := snap.Session; s != nil && !s.ExpiresAt.IsZero() {
		r.writePlain("Token expires: %s\n", s.ExpiresAt.Local().Format(time.RFC1123))
	}
	r.writePlain("Plan: %s\n", snap.SubscriptionPlan)
	return r.writePlain("Credits: %d\n", snap.Credits)
}
