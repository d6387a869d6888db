// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for configuration and the local database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Create config.toml from the template and fill in project values",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
					&cli.StringFlag{Name: "url", Usage: "Project URL"},
					&cli.StringFlag{Name: "anon-key", Usage: "Project anon (public) key"},
					&cli.StringFlag{Name: "webhook-base", Usage: "Base URL for the thumbnail, analyze, ab-test and video webhooks"},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "rollback", Usage: "Roll back the most recent migration"},
					&cli.BoolFlag{Name: "status", Usage: "Show applied and pending migrations"},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the signed-in session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with email and password, or with an OAuth provider in the browser",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Account email"},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password",
						Sources: cli.EnvVars("THUMBX_PASSWORD"),
					},
					&cli.StringFlag{Name: "provider", Usage: "OAuth provider (e.g. google) for browser sign-in"},
					&cli.BoolFlag{Name: "no-browser", Usage: "Print the sign-in URL instead of opening it"},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Sign out and clear the stored session",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show the current session, plan and credits",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.AuthStatus,
			},
			{
				Name:  "dev-login",
				Usage: "Start a developer bypass session (requires [dev].bypass_enabled)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Email for the bypass session"},
				},
				Action: r.AuthDevLogin,
			},
		},
	}
}

// profileCommand handles billing profile operations
func profileCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Billing profile (plan and credits)",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show plan and credit balance",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.ProfileShow,
			},
			{
				Name:   "refresh",
				Usage:  "Re-read the profile, e.g. after a purchase",
				Action: r.ProfileRefresh,
			},
		},
	}
}

// generateCommand handles paid actions
func generateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "generate",
		Aliases: []string{"gen"},
		Usage:   "Paid actions (1 credit each)",
		Commands: []*cli.Command{
			{
				Name:  "thumbnail",
				Usage: "Generate thumbnails from a prompt",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "prompt", Usage: "What the thumbnail should show"},
					&cli.StringFlag{Name: "style", Usage: "Optional style hint"},
					imageFlag(),
					jsonFlag(),
				},
				Action: r.GenerateThumbnail,
			},
			{
				Name:   "analyze",
				Usage:  "Get feedback on an existing thumbnail",
				Flags:  []cli.Flag{imageFlag(), jsonFlag()},
				Action: r.GenerateAnalyze,
			},
			{
				Name:   "abtest",
				Usage:  "Compare two or more thumbnails",
				Flags:  []cli.Flag{imageFlag(), jsonFlag()},
				Action: r.GenerateABTest,
			},
			{
				Name:  "video",
				Usage: "Render a video in the background (Pro)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Video title"},
					&cli.StringFlag{Name: "prompt", Usage: "Optional script or description"},
					imageFlag(),
					&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "Watch the job until it finishes"},
					jsonFlag(),
				},
				Action: r.GenerateVideo,
			},
		},
	}
}

// jobsCommand handles job status and history
func jobsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "jobs",
		Usage: "Job status and local history",
		Commands: []*cli.Command{
			{
				Name:  "latest",
				Usage: "Show the most recent job",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.JobsLatest,
			},
			{
				Name:  "watch",
				Usage: "Poll the most recent job until it completes or fails",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "interval", Usage: "Time between status checks (default from config)"},
					&cli.BoolFlag{Name: "open", Usage: "Open the result in the browser when complete"},
				},
				Action: r.JobsWatch,
			},
			{
				Name:  "history",
				Usage: "List jobs submitted from this machine",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "kind", Usage: "Filter by kind (thumbnail, analyze, abtest, video)"},
					&cli.StringFlag{Name: "status", Usage: "Filter by status"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of jobs", Value: 50},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (csv, md, txt, json)",
					},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Export file path"},
				},
				Action: r.JobsHistory,
			},
			{
				Name:  "download",
				Usage: "Download result images of completed jobs",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output directory", Value: "thumbnails"},
					&cli.IntFlag{Name: "workers", Usage: "Parallel downloads (1-10)", Value: 4},
					&cli.FloatFlag{Name: "rate", Usage: "Downloads per second", Value: 5},
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of jobs", Value: 50},
				},
				Action: r.JobsDownload,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for the interactive dashboard.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive dashboard",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dev", Usage: "Start with a developer bypass session"},
			&cli.StringFlag{Name: "log-file", Usage: "Log destination while the TUI is running", Value: "./tmp/thumbx-tui.log"},
		},
		Action: r.TUI,
	}
}

func imageFlag() cli.Flag {
	return &cli.StringSliceFlag{Name: "image", Aliases: []string{"i"}, Usage: "Path to an image (repeatable)"}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}
}
