package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresStore keeps usage counters in the trial_usage table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore returns a quota store that uses the given db for persistence.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Count returns the recorded uses for the pair, 0 if no row exists.
func (s *PostgresStore) Count(ctx context.Context, userID, service string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count FROM trial_usage WHERE user_id = $1 AND service = $2`,
		userID, service,
	).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

// IncrementWithCeiling upserts the row and increments it only while count < limit. The conditional
// update runs under the row lock, so concurrent callers cannot push the count past limit.
func (s *PostgresStore) IncrementWithCeiling(ctx context.Context, userID, service string, limit int) (int, bool, error) {
	if limit <= 0 {
		n, err := s.Count(ctx, userID, service)
		return n, false, err
	}
	var n int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO trial_usage (user_id, service, count, updated_at)
		VALUES ($1, $2, 1, $4)
		ON CONFLICT (user_id, service) DO UPDATE
		SET count = trial_usage.count + 1, updated_at = EXCLUDED.updated_at
		WHERE trial_usage.count < $3
		RETURNING count`,
		userID, service, limit, time.Now().UTC(),
	).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		// The WHERE clause rejected the update: already at the ceiling.
		n, err = s.Count(ctx, userID, service)
		return n, false, err
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// Reset deletes the record for the pair.
func (s *PostgresStore) Reset(ctx context.Context, userID, service string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM trial_usage WHERE user_id = $1 AND service = $2`, userID, service)
	return err
}
