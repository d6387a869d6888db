package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/thumbx/internal/models"
)

// SessionRepository stores the single signed-in session in the sessions table.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Save replaces the stored session.
func (r *SessionRepository) Save(session *models.Session) error {
	if session == nil || session.User.ID == "" {
		return fmt.Errorf("session without user cannot be saved")
	}

	var expiresAt any
	if !session.ExpiresAt.IsZero() {
		expiresAt = session.ExpiresAt.UTC()
	}

	_, err := r.db.Exec(`
		INSERT INTO sessions (id, user_id, email, access_token, refresh_token, token_type, expires_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			email = excluded.email,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type = excluded.token_type,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`,
		session.User.ID,
		session.User.Email,
		session.AccessToken,
		session.RefreshToken,
		session.TokenType,
		expiresAt,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load returns the stored session, or (nil, nil) when there is none.
func (r *SessionRepository) Load() (*models.Session, error) {
	var (
		s         models.Session
		expiresAt sql.NullTime
	)

	err := r.db.QueryRow(`
		SELECT user_id, email, access_token, refresh_token, token_type, expires_at
		FROM sessions WHERE id = 1
	`).Scan(&s.User.ID, &s.User.Email, &s.AccessToken, &s.RefreshToken, &s.TokenType, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if expiresAt.Valid {
		s.ExpiresAt = expiresAt.Time
	}
	return &s, nil
}

// Clear removes the stored session. Clearing an empty table is not an error.
func (r *SessionRepository) Clear() error {
	if _, err := r.db.Exec("DELETE FROM sessions"); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
