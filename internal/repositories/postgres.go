package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/desertthunder/thumbx/internal/models"
	"github.com/desertthunder/thumbx/internal/shared"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of [pgxpool.Pool] used by [PostgresStore].
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore reads profiles and jobs directly from the project database.
type PostgresStore struct {
	db Querier
}

// NewPostgresStore wraps an existing connection or pool.
func NewPostgresStore(db Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects a pool to dsn and pings it.
func OpenPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres dsn", shared.ErrMissingConfig)
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: postgres dsn: %w", shared.ErrInvalidConfig, err)
	}
	config.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return pool, nil
}

// Profile implements services.ProfileSource.
func (s *PostgresStore) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	query, args, err := squirrel.
		Select("id", "coalesce(credits, 0)", "coalesce(subscription_plan, 'free')").
		From("profiles").
		Where(squirrel.Eq{"id": userID}).
		Limit(1).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build profile query: %w", err)
	}

	var (
		p    models.Profile
		plan string
	)
	err = s.db.QueryRow(ctx, query, args...).Scan(&p.ID, &p.Credits, &plan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrProfileNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	p.Credits = max(p.Credits, 0)
	p.SubscriptionPlan = models.ParsePlan(plan)
	return &p, nil
}

// LatestJob implements services.JobSource.
func (s *PostgresStore) LatestJob(ctx context.Context, userID string) (*models.Job, error) {
	query, args, err := squirrel.
		Select("id", "user_id", "status", "created_at", "result_url").
		From("video_jobs").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		Limit(1).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build job query: %w", err)
	}

	var (
		job       models.Job
		status    string
		createdAt time.Time
		resultURL *string
	)
	err = s.db.QueryRow(ctx, query, args...).Scan(&job.ID, &job.UserID, &status, &createdAt, &resultURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", shared.ErrJobNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest job: %w", err)
	}

	job.Status = models.ParseJobStatus(status)
	job.CreatedAt = createdAt
	if resultURL != nil {
		job.ResultURL = *resultURL
	}
	return &job, nil
}
