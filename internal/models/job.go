package models

import (
	"strings"
	"time"
)

// JobStatus is the lifecycle state of an asynchronous job row.
type JobStatus string

const (
	JobUnknown    JobStatus = "unknown"
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// ParseJobStatus maps a remote status string onto a [JobStatus]. Anything unrecognized is [JobUnknown].
func ParseJobStatus(s string) JobStatus {
	switch st := JobStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case JobPending, JobProcessing, JobCompleted, JobFailed:
		return st
	case "queued":
		return JobPending
	case "running", "in_progress":
		return JobProcessing
	case "done", "success", "succeeded":
		return JobCompleted
	case "error", "cancelled", "canceled":
		return JobFailed
	}
	return JobUnknown
}

// IsTerminal reports whether no further status change is expected.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Job is the latest remote job row for a user.
type Job struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	ResultURL string    `json:"result_url,omitempty"`
}

// JobKind identifies a paid action.
type JobKind string

const (
	KindThumbnail JobKind = "thumbnail"
	KindAnalyze   JobKind = "analyze"
	KindABTest    JobKind = "abtest"
	KindVideo     JobKind = "video"
)

// Cost is the number of credits the action consumes.
func (k JobKind) Cost() int { return 1 }

// RequiresPro reports whether the action is restricted to pro tiers.
func (k JobKind) RequiresPro() bool { return k == KindVideo }

// Valid reports whether k is a known action.
func (k JobKind) Valid() bool {
	switch k {
	case KindThumbnail, KindAnalyze, KindABTest, KindVideo:
		return true
	}
	return false
}

func (s *JobStatus) UnmarshalText(text []byte) error {
	*s = ParseJobStatus(string(text))
	return nil
}
