package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/thumbx/internal/models"
	"github.com/desertthunder/thumbx/internal/services"
	"github.com/desertthunder/thumbx/internal/shared"
	"golang.org/x/time/rate"
)

// DefaultPollInterval is used when [PollerOptions.Interval] is unset.
const DefaultPollInterval = 4 * time.Second

// ResultsRoute is where "go to results" leads when the job has no result URL yet.
const ResultsRoute = "results"

// PollerOptions configures a [JobPoller].
type PollerOptions struct {
	Interval time.Duration
	Rate     float64 // queries per second; 0 disables the limiter
	Logger   *log.Logger
}

// JobPoller watches the most recent job of one user until it reaches a terminal status.
type JobPoller struct {
	source   services.JobSource
	userID   string
	interval time.Duration
	limiter  *rate.Limiter
	logger   *log.Logger

	mu       sync.Mutex
	status   models.JobStatus
	job      *models.Job
	attempts int
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewJobPoller creates a poller for userID. It does nothing until [JobPoller.Start].
func NewJobPoller(source services.JobSource, userID string, opts PollerOptions) *JobPoller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	p := &JobPoller{
		source:   source,
		userID:   userID,
		interval: opts.Interval,
		status:   models.JobUnknown,
		logger:   shared.WithLogger(opts.Logger, "component", "poller", "user", userID),
	}
	if opts.Rate > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(opts.Rate), 1)
	}
	return p
}

// Start queries immediately and then every interval until a terminal status, ctx ends, or [JobPoller.Stop].
// Status transitions are sent to updates without blocking. Calling Start on a running poller does nothing.
func (p *JobPoller) Start(ctx context.Context, updates chan<- ProgressUpdate) error {
	if p.userID == "" {
		return fmt.Errorf("%w: user id", shared.ErrMissingArgument)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx, updates, p.done)
	return nil
}

// Stop cancels polling and waits for the loop to exit. No update is sent after Stop returns.
func (p *JobPoller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed when polling ends. It is nil before Start.
func (p *JobPoller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Status returns the last known status.
func (p *JobPoller) Status() models.JobStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Job returns the last job row seen, or nil.
func (p *JobPoller) Job() *models.Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.job == nil {
		return nil
	}
	j := *p.job
	return &j
}

// Attempts returns how many queries have been issued.
func (p *JobPoller) Attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts
}

// ResultsTarget is the "go to results" action. It is available in every state: the job's result URL
// when there is one, otherwise [ResultsRoute].
func (p *JobPoller) ResultsTarget() string {
	if job := p.Job(); job != nil && job.ResultURL != "" {
		return job.ResultURL
	}
	return ResultsRoute
}

func (p *JobPoller) run(ctx context.Context, updates chan<- ProgressUpdate, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.stopped(updates)
			return
		case <-timer.C:
		}

		if p.tick(ctx, updates) {
			return
		}
		timer.Reset(p.interval)
	}
}

// tick runs one query and reports whether polling is finished.
func (p *JobPoller) tick(ctx context.Context, updates chan<- ProgressUpdate) bool {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return false
		}
	}

	p.mu.Lock()
	p.attempts++
	attempt := p.attempts
	p.mu.Unlock()
	sendProgress(updates, pollUpdate(attempt))

	job, err := p.source.LatestJob(ctx, p.userID)
	if ctx.Err() != nil {
		return false
	}

	observed := models.JobUnknown
	switch {
	case err != nil:
		p.logger.Warn("job status query failed", "attempt", attempt, "error", err)
	case job == nil:
		p.logger.Debug("no job yet", "attempt", attempt)
	default:
		observed = job.Status
	}

	p.mu.Lock()
	prev := p.status
	if job != nil {
		j := *job
		p.job = &j
	}
	next := advance(prev, observed)
	p.status = next
	p.mu.Unlock()

	if next != prev {
		p.logger.Info("job status changed", "from", prev, "to", next)
		sendProgress(updates, statusUpdate(attempt, prev, next, job))
	}

	switch next {
	case models.JobCompleted:
		sendProgress(updates, completeUpdate(job))
		return true
	case models.JobFailed:
		sendProgress(updates, failedUpdate(job))
		return true
	}
	return false
}

func (p *JobPoller) stopped(updates chan<- ProgressUpdate) {
	if status := p.Status(); !status.IsTerminal() {
		p.logger.Info("stopped watching job", "status", status)
		sendProgress(updates, backgroundUpdate(status))
	}
}

// advance returns the status to keep after observing next. Unknown observations and backward moves
// between non-terminal statuses keep the current one.
func advance(current, next models.JobStatus) models.JobStatus {
	if current.IsTerminal() || next == models.JobUnknown {
		return current
	}
	if next.IsTerminal() || rank(next) > rank(current) {
		return next
	}
	return current
}

func rank(s models.JobStatus) int {
	switch s {
	case models.JobPending:
		return 1
	case models.JobProcessing:
		return 2
	case models.JobCompleted, models.JobFailed:
		return 3
	}
	return 0
}
