package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/thumbx/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig creates the config file from the template and applies any project values passed as flags.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			return err
		}
		r.logger.Info("updating existing config", "path", configPath)
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		config = shared.DefaultConfig()
	}

	changed := false
	if v := cmd.String("url"); v != "" {
		config.Supabase.URL = strings.TrimRight(v, "/")
		changed = true
	}
	if v := cmd.String("anon-key"); v != "" {
		config.Supabase.AnonKey = v
		changed = true
	}
	if base := strings.TrimRight(cmd.String("webhook-base"), "/"); base != "" {
		config.Webhooks.Thumbnail = base + "/thumbnail"
		config.Webhooks.Analyze = base + "/analyze"
		config.Webhooks.ABTest = base + "/ab-test"
		config.Webhooks.Video = base + "/video"
		changed = true
	}

	if changed {
		if err := shared.SaveConfig(configPath, config); err != nil {
			return err
		}
	}
	r.config = config

	r.writePlain("✓ Config ready at %s\n", configPath)
	if err := config.Validate(); err != nil {
		r.writePlainln("Still missing: %v", err)
		r.writePlain("Edit %s or re-run with --url and --anon-key\n", configPath)
	}
	return nil
}

// SetupDatabase initializes the database and runs migrations.
//
// --rollback undoes the most recent migration and --status lists every known migration.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database)

	switch {
	case cmd.Bool("rollback"):
		r.logger.Info("rolling back last migration")
		if err := shared.RollbackMigration(db); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
		return r.writePlain("✓ Rolled back the most recent migration\n")

	case cmd.Bool("status"):
		states, err := shared.MigrationStatus(db)
		if err != nil {
			return fmt.Errorf("failed to read migration status: %w", err)
		}
		r.writePlainHeader("Migrations")
		for _, s := range states {
			applied := "pending"
			if s.AppliedAt != nil {
				applied = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
			r.writePlain("%04d  %-30s %s\n", s.Version, s.Name, applied)
		}
		return nil
	}

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
}
