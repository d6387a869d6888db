package tasks

import (
	"fmt"

	"github.com/desertthunder/thumbx/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Validate Phase = iota
	Submit
	Record
	Poll
	StatusChanged
	Background
	Download
	Complete
	Failed
)

func (p Phase) String() string {
	switch p {
	case Validate:
		return "validate"
	case Submit:
		return "submit"
	case Record:
		return "record"
	case Poll:
		return "poll"
	case StatusChanged:
		return "status_changed"
	case Background:
		return "background"
	case Download:
		return "download"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func validateUpdate(kind models.JobKind) ProgressUpdate {
	return ProgressUpdate{Phase: Validate, Step: 1, Total: 3, Message: fmt.Sprintf("Checking %s request...", kind)}
}

func submitUpdate(kind models.JobKind) ProgressUpdate {
	msg := fmt.Sprintf("Submitting %s request...", kind)
	if kind == models.KindVideo {
		msg = "Submitting video request (this can take a few minutes)..."
	}
	return ProgressUpdate{Phase: Submit, Step: 2, Total: 3, Message: msg}
}

func recordUpdate(job *models.JobRecord) ProgressUpdate {
	return ProgressUpdate{Phase: Record, Step: 3, Total: 3, Message: "Saving job to history...", Data: job}
}

func pollUpdate(attempt int) ProgressUpdate {
	return ProgressUpdate{Phase: Poll, Step: attempt, Message: "Checking job status..."}
}

func statusUpdate(attempt int, from, to models.JobStatus, job *models.Job) ProgressUpdate {
	return ProgressUpdate{
		Phase:   StatusChanged,
		Step:    attempt,
		Message: fmt.Sprintf("Job status: %s -> %s", from, to),
		Data:    job,
	}
}

func backgroundUpdate(status models.JobStatus) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Background,
		Message: fmt.Sprintf("Stopped watching while %s. You may close this, processing continues in the background.", status),
		Data:    status,
	}
}

func completeUpdate(job *models.Job) ProgressUpdate {
	msg := "Job completed"
	if job != nil && job.ResultURL != "" {
		msg = fmt.Sprintf("Job completed: %s", job.ResultURL)
	}
	return ProgressUpdate{Phase: Complete, Message: msg, Data: job}
}

func failedUpdate(job *models.Job) ProgressUpdate {
	return ProgressUpdate{Phase: Failed, Message: "Job failed", Data: job}
}

func downloadUpdate(step, total int, jobID string, err error) ProgressUpdate {
	msg := fmt.Sprintf("Downloaded results for %s", jobID)
	if err != nil {
		msg = fmt.Sprintf("Failed to download %s: %v", jobID, err)
	}
	return ProgressUpdate{Phase: Download, Step: step, Total: total, Message: msg}
}
