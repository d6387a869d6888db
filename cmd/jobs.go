package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"time"

	"github.com/desertthunder/thumbx/internal/formatter"
	"github.com/desertthunder/thumbx/internal/models"
	"github.com/desertthunder/thumbx/internal/shared"
	"github.com/desertthunder/thumbx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// JobsLatest prints the most recent remote job of the signed-in user.
func (r *Runner) JobsLatest(ctx context.Context, cmd *cli.Command) error {
	snap, err := r.requireSession(ctx)
	if err != nil {
		return err
	}

	job, err := r.jobs.LatestJob(ctx, snap.User.ID)
	if errors.Is(err, shared.ErrJobNotFound) || (err == nil && job == nil) {
		return r.writePlain("No jobs yet\n")
	}
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(job, true)
	}
	r.writePlain("Job: %s\n", job.ID)
	r.writePlain("Status: %s\n", job.Status)
	r.writePlain("Created: %s\n", job.CreatedAt.Local().Format(time.RFC1123))
	if job.ResultURL != "" {
		r.writePlain("Result: %s\n", job.ResultURL)
	}
	return nil
}

// JobsWatch polls the most recent job until it finishes or the user interrupts.
func (r *Runner) JobsWatch(ctx context.Context, cmd *cli.Command) error {
	return r.watch(ctx, cmd.Duration("interval"), cmd.Bool("open"))
}

// watch runs a [tasks.JobPoller] in the foreground. Ctrl-C stops watching without affecting the job.
func (r *Runner) watch(ctx context.Context, interval time.Duration, open bool) error {
	snap, err := r.requireSession(ctx)
	if err != nil {
		return err
	}

	opts := tasks.PollerOptions{
		Interval: r.config.Polling.Interval.Duration,
		Rate:     r.config.Polling.Rate,
		Logger:   r.logger,
	}
	if interval > 0 {
		opts.Interval = interval
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	poller := tasks.NewJobPoller(r.jobs, snap.User.ID, opts)
	updates := make(chan tasks.ProgressUpdate, 16)
	if err := poller.Start(ctx, updates); err != nil {
		return err
	}
	r.writePlain("Watching latest job (Ctrl-C to stop; processing continues in the background)\n")

	for finished := false; !finished; {
		select {
		case u := <-updates:
			r.printPollUpdate(u)
		case <-poller.Done():
			finished = true
		}
	}
	for drained := false; !drained; {
		select {
		case u := <-updates:
			r.printPollUpdate(u)
		default:
			drained = true
		}
	}

	status := poller.Status()
	if job := poller.Job(); job != nil && status != models.JobUnknown {
		if _, err := r.history.SyncLatest(snap.User.ID, models.KindVideo, status, job.ResultURL); err != nil {
			r.logger.Warn("failed to update job history", "error", err)
		}
	}

	if status == models.JobCompleted {
		target := poller.ResultsTarget()
		if target == tasks.ResultsRoute {
			return r.writePlain("See 'thumbx jobs history' for results\n")
		}
		r.writePlain("Results: %s\n", target)
		if open {
			if err := shared.OpenBrowser(target); err != nil {
				r.logger.Warn("failed to open browser", "error", err)
			}
		}
	}
	return nil
}

func (r *Runner) printPollUpdate(u tasks.ProgressUpdate) {
	switch u.Phase {
	case tasks.Poll:
		r.logger.Debug(u.Message)
	case tasks.StatusChanged:
		r.writePlain("• %s\n", u.Message)
	case tasks.Background:
		r.writePlain("\n⏸ %s\n", u.Message)
	case tasks.Complete:
		r.writePlain("✓ %s\n", u.Message)
	case tasks.Failed:
		r.writePlain("✗ %s\n", u.Message)
	}
}

// JobsHistory lists jobs recorded locally, or exports them with --format.
func (r *Runner) JobsHistory(ctx context.Context, cmd *cli.Command) error {
	jobs, err := r.listHistory(ctx, cmd)
	if err != nil {
		return err
	}

	if format := cmd.String("format"); format != "" {
		path, err := formatter.WriteHistory(jobs, format, cmd.String("output"))
		if err != nil {
			return err
		}
		return r.writePlain("✓ Exported %d job(s) to %s\n", len(jobs), path)
	}

	if len(jobs) == 0 {
		return r.writePlain("No jobs recorded on this machine\n")
	}
	data, err := formatter.ExportToText(jobs)
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}

// JobsDownload saves result images of recorded jobs with a rate limited worker pool.
func (r *Runner) JobsDownload(ctx context.Context, cmd *cli.Command) error {
	jobs, err := r.listHistory(ctx, cmd)
	if err != nil {
		return err
	}

	progressCh := make(chan tasks.ProgressUpdate, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("[%d/%d] %s\n", update.Step, update.Total, update.Message)
		}
	}()

	result, err := tasks.DownloadResults(ctx, progressCh, jobs, tasks.DownloadOpts{
		OutputDir:  cmd.String("output"),
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate"),
		Client:     r.httpClient,
	})
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	m := result.Manifest
	r.writePlainln("Downloaded %d/%d result(s) into %s", m.Successful, m.Total, m.Directory)
	if m.Failed > 0 {
		r.writePlain("%d failed, see %s\n", m.Failed, result.ManifestPath)
	}
	return nil
}

// listHistory applies the history filter flags for the signed-in user.
func (r *Runner) listHistory(ctx context.Context, cmd *cli.Command) ([]*models.JobRecord, error) {
	snap, err := r.requireSession(ctx)
	if err != nil {
		return nil, err
	}

	criteria := map[string]any{"user_id": snap.User.ID}
	if cmd.IsSet("kind") {
		kind := models.JobKind(cmd.String("kind"))
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: kind %q", shared.ErrInvalidFlag, kind)
		}
		criteria["kind"] = string(kind)
	}
	if cmd.IsSet("status") {
		status := models.ParseJobStatus(cmd.String("status"))
		if status == models.JobUnknown {
			return nil, fmt.Errorf("%w: status %q", shared.ErrInvalidFlag, cmd.String("status"))
		}
		criteria["status"] = string(status)
	}
	if limit := int(cmd.Int("limit")); limit > 0 {
		criteria["limit"] = limit
	}
	if format := cmd.String("format"); format != "" && !slices.Contains(exportFormats, format) {
		return nil, fmt.Errorf("%w: format %q", shared.ErrInvalidFlag, format)
	}

	return r.history.List(criteria)
}

var exportFormats = []string{formatter.FormatCSV, formatter.FormatMarkdown, "md", formatter.FormatText, "text", formatter.FormatJSON}
