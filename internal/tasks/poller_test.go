package tasks

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/desertthunder/thumbx/internal/models"
	"github.com/desertthunder/thumbx/internal/shared"
	tu "github.com/desertthunder/thumbx/internal/testing"
)

func newTestPoller(jobs *tu.MockJobs, interval time.Duration) *JobPoller {
	return NewJobPoller(jobs, "u-1", PollerOptions{Interval: interval, Logger: shared.NewLogger(io.Discard)})
}

func waitDone(t *testing.T, p *JobPoller) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not finish")
	}
}

func drain(ch chan ProgressUpdate) []ProgressUpdate {
	var out []ProgressUpdate
	for {
		select {
		case u := <-ch:
			out = append(out, u)
		default:
			return out
		}
	}
}

func TestJobPoller(t *testing.T) {
	ctx := context.Background()

	t.Run("Stops At Terminal Status", func(t *testing.T) {
		jobs := tu.NewMockJobs(
			tu.JobStep{Status: models.JobPending},
			tu.JobStep{Status: models.JobProcessing},
			tu.JobStep{Status: models.JobCompleted},
		)
		p := newTestPoller(jobs, time.Millisecond)
		updates := make(chan ProgressUpdate, 32)

		if err := p.Start(ctx, updates); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		waitDone(t, p)
		time.Sleep(10 * time.Millisecond)

		if jobs.Calls() != 3 {
			t.Errorf("expected exactly 3 queries, got %d", jobs.Calls())
		}
		if p.Status() != models.JobCompleted {
			t.Errorf("expected completed, got %s", p.Status())
		}

		var changes, completes int
		for _, u := range drain(updates) {
			switch u.Phase {
			case StatusChanged:
				changes++
			case Complete:
				completes++
			case Background:
				t.Error("terminal job should not report background processing")
			}
		}
		if changes != 3 || completes != 1 {
			t.Errorf("expected 3 transitions and 1 completion, got %d and %d", changes, completes)
		}
	})

	t.Run("Query Error Does Not Terminate", func(t *testing.T) {
		jobs := tu.NewMockJobs(
			tu.JobStep{Status: models.JobPending},
			tu.JobStep{Err: errors.New("connection reset")},
			tu.JobStep{Status: models.JobProcessing},
			tu.JobStep{Status: models.JobCompleted},
		)
		p := newTestPoller(jobs, time.Millisecond)
		updates := make(chan ProgressUpdate, 32)

		p.Start(ctx, updates)
		waitDone(t, p)

		if jobs.Calls() != 4 {
			t.Errorf("expected 4 queries, got %d", jobs.Calls())
		}

		terminal := 0
		for _, u := range drain(updates) {
			if u.Phase == Complete || u.Phase == Failed {
				terminal++
			}
		}
		if terminal != 1 {
			t.Errorf("expected exactly one terminal stop, got %d", terminal)
		}
	})

	t.Run("Missing Row Keeps Polling", func(t *testing.T) {
		jobs := tu.NewMockJobs(tu.JobStep{}, tu.JobStep{}, tu.JobStep{Status: models.JobFailed})
		p := newTestPoller(jobs, time.Millisecond)

		p.Start(ctx, nil)
		waitDone(t, p)

		if p.Status() != models.JobFailed || jobs.Calls() != 3 {
			t.Errorf("expected failed after 3 queries, got %s after %d", p.Status(), jobs.Calls())
		}
	})

	t.Run("Backward Transition Is Tolerated", func(t *testing.T) {
		jobs := tu.NewMockJobs(
			tu.JobStep{Status: models.JobProcessing},
			tu.JobStep{Status: models.JobPending},
			tu.JobStep{Status: models.JobCompleted},
		)
		updates := make(chan ProgressUpdate, 32)
		p := newTestPoller(jobs, time.Millisecond)

		p.Start(ctx, updates)
		waitDone(t, p)

		changes := 0
		for _, u := range drain(updates) {
			if u.Phase == StatusChanged {
				changes++
			}
		}
		if changes != 2 {
			t.Errorf("expected unknown->processing->completed, got %d transitions", changes)
		}
	})

	t.Run("First Query Is Immediate", func(t *testing.T) {
		jobs := tu.NewMockJobs(tu.JobStep{Status: models.JobPending})
		jobs.Notify = make(chan int, 1)
		p := newTestPoller(jobs, time.Hour)
		defer p.Stop()

		p.Start(ctx, nil)
		select {
		case n := <-jobs.Notify:
			if n != 1 {
				t.Errorf("expected first query, got %d", n)
			}
		case <-time.After(time.Second):
			t.Fatal("expected an immediate query")
		}
	})

	t.Run("Stop While Pending", func(t *testing.T) {
		jobs := tu.NewMockJobs(tu.JobStep{Status: models.JobPending})
		jobs.Notify = make(chan int, 1)
		p := newTestPoller(jobs, time.Hour)
		updates := make(chan ProgressUpdate, 32)

		p.Start(ctx, updates)
		<-jobs.Notify
		time.Sleep(10 * time.Millisecond)
		p.Stop()
		p.Stop()

		calls := jobs.Calls()
		if calls != 1 {
			t.Errorf("expected 1 query, got %d", calls)
		}

		found := false
		for _, u := range drain(updates) {
			if u.Phase == Background {
				found = true
			}
		}
		if !found {
			t.Error("expected background notice after stopping a pending job")
		}

		time.Sleep(10 * time.Millisecond)
		if len(drain(updates)) != 0 || jobs.Calls() != calls {
			t.Error("no activity expected after Stop")
		}
	})

	t.Run("Context Cancel Ends Polling", func(t *testing.T) {
		jobs := tu.NewMockJobs(tu.JobStep{Status: models.JobProcessing})
		cctx, cancel := context.WithCancel(ctx)
		p := newTestPoller(jobs, time.Millisecond)

		p.Start(cctx, nil)
		time.Sleep(5 * time.Millisecond)
		cancel()
		waitDone(t, p)

		if p.Status() != models.JobProcessing {
			t.Errorf("expected processing, got %s", p.Status())
		}
	})

	t.Run("Start Twice Is A No-op", func(t *testing.T) {
		jobs := tu.NewMockJobs(tu.JobStep{Status: models.JobCompleted})
		p := newTestPoller(jobs, time.Millisecond)

		p.Start(ctx, nil)
		p.Start(ctx, nil)
		waitDone(t, p)

		if jobs.Calls() != 1 {
			t.Errorf("expected 1 query, got %d", jobs.Calls())
		}
	})

	t.Run("Requires User", func(t *testing.T) {
		p := NewJobPoller(tu.NewMockJobs(), "", PollerOptions{Logger: shared.NewLogger(io.Discard)})
		if err := p.Start(ctx, nil); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		p.Stop()
		if p.Done() != nil {
			t.Error("Done should be nil before a successful Start")
		}
	})

	t.Run("ResultsTarget", func(t *testing.T) {
		p := newTestPoller(tu.NewMockJobs(), time.Hour)
		if got := p.ResultsTarget(); got != ResultsRoute {
			t.Errorf("expected %s before any job, got %s", ResultsRoute, got)
		}

		p.job = &models.Job{ID: "j", Status: models.JobCompleted, ResultURL: "https://cdn/v.mp4"}
		if got := p.ResultsTarget(); got != "https://cdn/v.mp4" {
			t.Errorf("expected result url, got %s", got)
		}
	})

	t.Run("Rate Limited", func(t *testing.T) {
		jobs := tu.NewMockJobs(
			tu.JobStep{Status: models.JobPending},
			tu.JobStep{Status: models.JobCompleted},
		)
		p := NewJobPoller(jobs, "u-1", PollerOptions{Interval: time.Millisecond, Rate: 20, Logger: shared.NewLogger(io.Discard)})

		start := time.Now()
		p.Start(ctx, nil)
		waitDone(t, p)

		if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
			t.Errorf("expected limiter to space queries, took %v", elapsed)
		}
	})
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		current, next, want models.JobStatus
	}{
		{models.JobUnknown, models.JobPending, models.JobPending},
		{models.JobPending, models.JobUnknown, models.JobPending},
		{models.JobProcessing, models.JobPending, models.JobProcessing},
		{models.JobPending, models.JobFailed, models.JobFailed},
		{models.JobUnknown, models.JobCompleted, models.JobCompleted},
		{models.JobCompleted, models.JobPending, models.JobCompleted},
	}

	for _, tt := range tests {
		if got := advance(tt.current, tt.next); got != tt.want {
			t.Errorf("advance(%s, %s) = %s, want %s", tt.current, tt.next, got, tt.want)
		}
	}
}
