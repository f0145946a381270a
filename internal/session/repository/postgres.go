package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"lexgate/backend/internal/session/domain"
)

// PostgresRepository reads and revokes sessions in the identity authority's sessions table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, tenant_id, created_at, revoked_at FROM sessions WHERE id = $1`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// ListActiveByUser returns the user's non-revoked sessions, oldest first.
func (r *PostgresRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, tenant_id, created_at, revoked_at FROM sessions
		 WHERE user_id = $1 AND revoked_at IS NULL
		 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, tenant_id, created_at, revoked_at) VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.UserID, s.TenantID, s.CreatedAt, timeToNullTime(s.RevokedAt))
	return err
}

// Revoke marks the session revoked. Already revoked or missing sessions are left untouched.
func (r *PostgresRepository) Revoke(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`,
		id, time.Now().UTC())
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		s         domain.Session
		revokedAt sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.TenantID, &s.CreatedAt, &revokedAt); err != nil {
		return nil, err
	}
	s.RevokedAt = nullTimeToPtr(revokedAt)
	s.Status = domain.StatusActive
	if s.RevokedAt != nil {
		s.Status = domain.StatusRevoked
	}
	return &s, nil
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}
