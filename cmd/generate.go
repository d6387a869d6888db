package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/thumbx/internal/models"
	"github.com/desertthunder/thumbx/internal/services"
	"github.com/desertthunder/thumbx/internal/shared"
	"github.com/desertthunder/thumbx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// GenerateThumbnail generates thumbnails from a prompt, optionally with reference images.
func (r *Runner) GenerateThumbnail(ctx context.Context, cmd *cli.Command) error {
	action := tasks.Action{Kind: models.KindThumbnail, Prompt: cmd.String("prompt")}
	if style := cmd.String("style"); style != "" {
		action.Fields = map[string]string{"style": style}
	}
	return r.runAction(ctx, cmd, action)
}

// GenerateAnalyze asks for feedback on one thumbnail.
func (r *Runner) GenerateAnalyze(ctx context.Context, cmd *cli.Command) error {
	return r.runAction(ctx, cmd, tasks.Action{Kind: models.KindAnalyze})
}

// GenerateABTest compares two or more thumbnails.
func (r *Runner) GenerateABTest(ctx context.Context, cmd *cli.Command) error {
	return r.runAction(ctx, cmd, tasks.Action{Kind: models.KindABTest})
}

// GenerateVideo submits a background video job and optionally watches it.
func (r *Runner) GenerateVideo(ctx context.Context, cmd *cli.Command) error {
	action := tasks.Action{Kind: models.KindVideo, Title: cmd.String("title"), Prompt: cmd.String("prompt")}
	if err := r.runAction(ctx, cmd, action); err != nil {
		return err
	}
	if !cmd.Bool("watch") {
		return r.writePlain("Track it with 'thumbx jobs watch'\n")
	}
	return r.watch(ctx, 0, false)
}

// runAction loads images, runs the paid action and prints its result.
func (r *Runner) runAction(ctx context.Context, cmd *cli.Command, action tasks.Action) error {
	images, err := readAttachments(cmd.StringSlice("image"))
	if err != nil {
		return err
	}
	action.Images = images

	if err := action.Validate(); err != nil {
		return err
	}
	if _, err := r.requireSession(ctx); err != nil {
		return err
	}

	progressCh := make(chan tasks.ProgressUpdate, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.Submit:
				r.writePlain("📤 %s\n", update.Message)
			case tasks.Record:
				r.logger.Debug(update.Message)
			}
		}
	}()

	result, err := r.engine.Run(ctx, progressCh, action)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result.Webhook, true)
	}
	return r.printResult(result)
}

func (r *Runner) printResult(result *tasks.ActionResult) error {
	res := result.Webhook
	switch res.Kind {
	case services.ResultImages:
		r.writePlain("\n✓ Generated %d image(s)\n", len(res.Images))
		for i, u := range res.Images {
			r.writePlain("  %d. %s\n", i+1, shared.Truncate(u, 120))
		}
	case services.ResultAnalysis:
		r.writePlainHeader("Analysis")
		r.writePlain("%s\n", strings.TrimSpace(res.Analysis))
	case services.ResultAccepted:
		r.writePlain("\n✓ Accepted for background processing")
		if res.JobID != "" {
			r.writePlain(" (job %s)", res.JobID)
		}
		r.writePlain("\n")
	}

	snap := r.manager.Snapshot()
	return r.writePlain("Credits remaining: %d\n", snap.Credits)
}

// readAttachments loads image files and sniffs their content type.
func readAttachments(paths []string) ([]services.Attachment, error) {
	images := make([]services.Attachment, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}
		contentType := http.DetectContentType(data)
		if !strings.HasPrefix(contentType, "image/") {
			return nil, fmt.Errorf("%w: %s is not an image (%s)", shared.ErrInvalidInput, p, contentType)
		}
		images = append(images, services.Attachment{
			Name:        filepath.Base(p),
			ContentType: contentType,
			Data:        data,
		})
	}
	return images, nil
}
