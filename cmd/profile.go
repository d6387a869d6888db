package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// ProfileShow prints the plan and credit balance of the signed-in user.
func (r *Runner) ProfileShow(ctx context.Context, cmd *cli.Command) error {
	snap, err := r.requireSession(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(newStatusView(snap), true)
	}

	r.writePlainHeader("Profile")
	r.writePlain("Email: %s\n", snap.User.Email)
	r.writePlain("Plan: %s\n", snap.SubscriptionPlan)
	r.writePlain("Credits: %d\n", snap.Credits)
	if !snap.IsPro {
		r.writePlainln("Video generation requires a Pro plan.")
	}
	return nil
}

// ProfileRefresh re-reads the profile, skipping the cached copy.
func (r *Runner) ProfileRefresh(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.requireSession(ctx); err != nil {
		return err
	}
	if err := r.manager.RefreshProfile(ctx); err != nil {
		return err
	}

	snap := r.manager.Snapshot()
	return r.writePlain("✓ Profile refreshed • Plan: %s • Credits: %d\n", snap.SubscriptionPlan, snap.Credits)
}
