package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/thumbx/internal/models"
	"github.com/desertthunder/thumbx/internal/shared"
)

const jobColumns = `
	id, sequence, user_id, kind, remote_id, status, result_url,
	message, summary, credits_spent, created_at, updated_at, deleted_at
`

// JobRepository implements models.Repository[*models.JobRecord] for the local job history.
type JobRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.JobRecord] = (*JobRepository)(nil)

// NewJobRepository creates a new JobRepository with the given database connection
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts job with a generated ID and sequence.
func (r *JobRepository) Create(job *models.JobRecord) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "jobs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	_, err = r.db.Exec(`
		INSERT INTO jobs (
			id, sequence, user_id, kind, remote_id, status, result_url,
			message, summary, credits_spent, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		sequence,
		job.UserID(),
		string(job.Kind()),
		nullString(job.RemoteID()),
		string(job.Status()),
		nullString(job.ResultURL()),
		nullString(job.Message()),
		job.Summary(),
		job.CreditsSpent(),
		job.CreatedAt(),
		job.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}

	job.SetID(id)
	job.SetSequence(sequence)
	return nil
}

// Get retrieves a job by ID, excluding soft-deleted jobs
func (r *JobRepository) Get(id string) (*models.JobRecord, error) {
	row := r.db.QueryRow("SELECT "+jobColumns+" FROM jobs WHERE id = ? AND deleted_at IS NULL", id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}
	return job, err
}

// Update writes the mutable fields of job.
func (r *JobRepository) Update(job *models.JobRecord) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	result, err := r.db.Exec(`
		UPDATE jobs
		SET remote_id = ?, status = ?, result_url = ?, message = ?, credits_spent = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`,
		nullString(job.RemoteID()),
		string(job.Status()),
		nullString(job.ResultURL()),
		nullString(job.Message()),
		job.CreditsSpent(),
		now,
		job.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	if err := expectRow(result, job.ID()); err != nil {
		return err
	}
	job.SetUpdatedAt(now)
	return nil
}

// Delete soft-deletes a job by ID
func (r *JobRepository) Delete(id string) error {
	result, err := r.db.Exec("UPDATE jobs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return expectRow(result, id)
}

// List returns jobs newest first. Supported criteria: user_id, kind, status (strings) and limit (int).
func (r *JobRepository) List(criteria map[string]any) ([]*models.JobRecord, error) {
	query := "SELECT " + jobColumns + " FROM jobs WHERE deleted_at IS NULL"
	args := []any{}

	for _, key := range []string{"user_id", "kind", "status"} {
		if v, ok := criteria[key].(string); ok && v != "" {
			query += " AND " + key + " = ?"
			args = append(args, v)
		}
	}

	query += " ORDER BY sequence DESC"
	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.JobRecord
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return jobs, nil
}

// RecordJob stores a job submitted by the paid action runner.
func (r *JobRepository) RecordJob(job *models.JobRecord) error {
	return r.Create(job)
}

// SyncLatest applies a status observed remotely to the newest unfinished job of kind for userID.
// It returns false when there is no such job.
func (r *JobRepository) SyncLatest(userID string, kind models.JobKind, status models.JobStatus, resultURL string) (bool, error) {
	jobs, err := r.List(map[string]any{"user_id": userID, "kind": string(kind), "limit": 10})
	if err != nil {
		return false, err
	}

	for _, job := range jobs {
		if job.Status().IsTerminal() {
			continue
		}
		if job.Status() == status && (resultURL == "" || job.ResultURL() == resultURL) {
			return true, nil
		}
		job.SetStatus(status)
		if resultURL != "" {
			job.SetResultURL(resultURL)
		}
		return true, r.Update(job)
	}
	return false, nil
}

func expectRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s (or already deleted)", shared.ErrJobNotFound, id)
	}
	return nil
}

// scanJob reads one row selected with jobColumns.
func scanJob(s scanner) (*models.JobRecord, error) {
	var (
		id, userID, kind, status, summary string
		sequence, creditsSpent            int
		remoteID, resultURL, message      sql.NullString
		createdAt, updatedAt              time.Time
		deletedAt                         sql.NullTime
	)

	err := s.Scan(
		&id, &sequence, &userID, &kind, &remoteID, &status, &resultURL,
		&message, &summary, &creditsSpent, &createdAt, &updatedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}

	job := models.NewJobRecord(userID, models.JobKind(kind), summary)
	job.SetID(id)
	job.SetSequence(sequence)
	job.SetStatus(models.ParseJobStatus(status))
	job.SetRemoteID(remoteID.String)
	job.SetResultURL(resultURL.String)
	job.SetMessage(message.String)
	job.SetCreditsSpent(creditsSpent)
	job.SetCreatedAt(createdAt)
	job.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		job.SetDeletedAt(&deletedAt.Time)
	}
	return job, nil
}
