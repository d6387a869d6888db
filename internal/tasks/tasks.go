package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/thumbx/internal/auth"
	"github.com/desertthunder/thumbx/internal/models"
	"github.com/desertthunder/thumbx/internal/services"
	"github.com/desertthunder/thumbx/internal/shared"
	"golang.org/x/time/rate"
)

// Action is a paid request made from the CLI or TUI.
type Action struct {
	Kind   models.JobKind
	Prompt string
	Title  string
	Images []services.Attachment
	Fields map[string]string
}

// Validate checks the inputs each kind requires.
func (a Action) Validate() error {
	if !a.Kind.Valid() {
		return fmt.Errorf("%w: job kind %q", shared.ErrInvalidArgument, a.Kind)
	}

	switch a.Kind {
	case models.KindThumbnail:
		if strings.TrimSpace(a.Prompt) == "" {
			return fmt.Errorf("%w: prompt", shared.ErrMissingArgument)
		}
	case models.KindAnalyze:
		if len(a.Images) == 0 {
			return fmt.Errorf("%w: an image to analyze", shared.ErrMissingArgument)
		}
	case models.KindABTest:
		if len(a.Images) < 2 {
			return fmt.Errorf("%w: at least two images to compare", shared.ErrMissingArgument)
		}
	case models.KindVideo:
		if strings.TrimSpace(a.Title) == "" && strings.TrimSpace(a.Prompt) == "" {
			return fmt.Errorf("%w: title or prompt", shared.ErrMissingArgument)
		}
	}

	for i, img := range a.Images {
		if len(img.Data) == 0 {
			return fmt.Errorf("%w: image %d is empty", shared.ErrInvalidInput, i+1)
		}
	}
	return nil
}

// Summary is the short description stored in the job history.
func (a Action) Summary() string {
	s := a.Title
	if s == "" {
		s = a.Prompt
	}
	if s == "" && len(a.Images) > 0 {
		names := make([]string, 0, len(a.Images))
		for _, img := range a.Images {
			names = append(names, img.Name)
		}
		s = strings.Join(names, ", ")
	}
	return shared.Truncate(strings.TrimSpace(s), 80)
}

// ActionResult is the outcome of a successful [StudioEngine.Run].
type ActionResult struct {
	Webhook *services.WebhookResult
	Job     *models.JobRecord
}

// Account is the slice of the auth context the engine needs.
type Account interface {
	Snapshot() auth.Snapshot
	RequireCredits(cost int, requiresPro bool) error
	DecrementCredits(amount int)
}

// Submitter posts a request to a webhook.
type Submitter interface {
	Submit(ctx context.Context, req services.WebhookRequest) (*services.WebhookResult, error)
}

// JobRecorder persists submitted jobs (repositories.JobRepository).
type JobRecorder interface {
	RecordJob(job *models.JobRecord) error
}

// StudioEngine runs paid actions.
type StudioEngine struct {
	account  Account
	webhooks Submitter
	recorder JobRecorder
	limiter  *rate.Limiter
	logger   *log.Logger
}

// NewStudioEngine creates an engine. recorder may be nil to skip history.
// Submissions are limited to one every two seconds.
func NewStudioEngine(account Account, webhooks Submitter, recorder JobRecorder, logger *log.Logger) *StudioEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &StudioEngine{
		account:  account,
		webhooks: webhooks,
		recorder: recorder,
		limiter:  rate.NewLimiter(rate.Limit(0.5), 1),
		logger:   shared.WithLogger(logger, "component", "studio"),
	}
}

// Run validates a, checks credits, submits it and charges the account.
//
// Validation and credit failures return before any webhook call. Webhook errors leave credits and history
// untouched.
func (e *StudioEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, a Action) (*ActionResult, error) {
	if e.webhooks == nil {
		return nil, fmt.Errorf("%w: webhook client not initialized", shared.ErrServiceUnavailable)
	}

	sendProgress(progress, validateUpdate(a.Kind))
	if err := a.Validate(); err != nil {
		return nil, err
	}

	cost := a.Kind.Cost()
	if err := e.account.RequireCredits(cost, a.Kind.RequiresPro()); err != nil {
		return nil, err
	}

	snap := e.account.Snapshot()
	logger := shared.WithLogger(e.logger, "kind", a.Kind, "user", snap.User.ID)

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	}

	sendProgress(progress, submitUpdate(a.Kind))
	res, err := e.webhooks.Submit(ctx, services.WebhookRequest{
		Kind:   a.Kind,
		UserID: snap.User.ID,
		Email:  snap.User.Email,
		Prompt: a.Prompt,
		Title:  a.Title,
		Images: a.Images,
		Fields: a.Fields,
	})
	if err != nil {
		logger.Warn("paid action failed", "error", err)
		return nil, err
	}

	e.account.DecrementCredits(cost)

	job := jobFromResult(snap.User.ID, a, res, cost)
	sendProgress(progress, recordUpdate(job))
	if e.recorder != nil {
		if err := e.recorder.RecordJob(job); err != nil {
			logger.Warn("failed to record job", "error", err)
		}
	}

	logger.Info("paid action submitted", "result", res.Kind)
	return &ActionResult{Webhook: res, Job: job}, nil
}

func jobFromResult(userID string, a Action, res *services.WebhookResult, cost int) *models.JobRecord {
	job := models.NewJobRecord(userID, a.Kind, a.Summary())
	job.SetCreditsSpent(cost)
	job.SetRemoteID(res.JobID)

	switch res.Kind {
	case services.ResultImages:
		job.SetStatus(models.JobCompleted)
		job.SetResultURL(res.Images[0])
		if len(res.Images) > 1 {
			job.SetMessage(fmt.Sprintf("%d images", len(res.Images)))
		}
	case services.ResultAnalysis:
		job.SetStatus(models.JobCompleted)
		job.SetMessage(shared.Truncate(res.Analysis, 500))
	default:
		job.SetStatus(models.JobPending)
	}
	return job
}
