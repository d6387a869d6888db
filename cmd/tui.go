package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/thumbx/internal/shared"
	"github.com/desertthunder/thumbx/internal/tasks"
	"github.com/desertthunder/thumbx/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive dashboard.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, logFile, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer logFile.Close()
	r.SetLogger(fileLogger)

	if err := r.connect(ctx); err != nil {
		return err
	}
	if cmd.Bool("dev") {
		r.manager.Initialize(ctx)
		if _, err := r.manager.DevSignIn(""); err != nil {
			return err
		}
	}

	model := ui.NewModel(ctx, ui.Options{
		Auth:    r.manager,
		Engine:  r.engine,
		Jobs:    r.jobs,
		History: r.history,
		Poll: tasks.PollerOptions{
			Interval: r.config.Polling.Interval.Duration,
			Rate:     r.config.Polling.Rate,
			Logger:   fileLogger,
		},
		OpenURL: shared.OpenBrowser,
	})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
