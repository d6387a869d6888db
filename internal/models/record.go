package models

import (
	"fmt"
	"time"
)

// JobRecord is a paid action submitted from this client, stored in the local jobs table.
type JobRecord struct {
	id           string
	sequence     int
	userID       string
	kind         JobKind
	remoteID     string
	status       JobStatus
	resultURL    string
	message      string
	summary      string
	creditsSpent int
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

// NewJobRecord creates a pending record for userID.
func NewJobRecord(userID string, kind JobKind, summary string) *JobRecord {
	now := time.Now()
	return &JobRecord{
		userID:    userID,
		kind:      kind,
		summary:   summary,
		status:    JobPending,
		createdAt: now,
		updatedAt: now,
	}
}

func (j *JobRecord) ID() string { return j.id }
func (j *JobRecord) Sequence() int { return j.sequence }
func (j *JobRecord) UserID() string { return j.userID }
func (j *JobRecord) Kind() JobKind { return j.kind }
func (j *JobRecord) RemoteID() string { return j.remoteID }
func (j *JobRecord) Status() JobStatus { return j.status }
func (j *JobRecord) ResultURL() string { return j.resultURL }
func (j *JobRecord) Message() string { return j.message }
func (j *JobRecord) Summary() string { return j.summary }
func (j *JobRecord) CreditsSpent() int { return j.creditsSpent }
func (j *JobRecord) CreatedAt() time.Time { return j.createdAt }
func (j *JobRecord) UpdatedAt() time.Time { return j.updatedAt }
func (j *JobRecord) DeletedAt() *time.Time { return j.deletedAt }

func (j *JobRecord) SetID(id string) { j.id = id }
func (j *JobRecord) SetSequence(seq int) { j.sequence = seq }
func (j *JobRecord) SetRemoteID(id string) { j.remoteID = id }
func (j *JobRecord) SetResultURL(url string) { j.resultURL = url }
func (j *JobRecord) SetMessage(msg string) { j.message = msg }
func (j *JobRecord) SetCreditsSpent(n int) { j.creditsSpent = n }
func (j *JobRecord) SetCreatedAt(t time.Time) { j.createdAt = t }
func (j *JobRecord) SetUpdatedAt(t time.Time) { j.updatedAt = t }
func (j *JobRecord) SetDeletedAt(t *time.Time) { j.deletedAt = t }

// SetStatus moves the record to status. Terminal records keep their status.
func (j *JobRecord) SetStatus(status JobStatus) {
	if j.status.IsTerminal() && !status.IsTerminal() {
		return
	}
	j.status = status
}

// Validate checks required fields.
func (j *JobRecord) Validate() error {
	if j.userID == "" {
		return fmt.Errorf("user id is required")
	}
	if !j.kind.Valid() {
		return fmt.Errorf("unknown job kind %q", j.kind)
	}
	if j.creditsSpent < 0 {
		return fmt.Errorf("credits spent must not be negative")
	}
	return nil
}
