// Package db opens connections to the collaborators' backing stores: the Postgres database shared with the
// session authority and quota service, and Redis.
package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrEmptyDSN is returned when no connection string is configured.
var ErrEmptyDSN = errors.New("db: empty DSN")

// Open opens a Postgres connection pool using the given DSN and verifies it with a ping bounded by ctx.
// Caller must call Close when done.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, ErrEmptyDSN
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
