package repository

import (
	"context"
	"database/sql"

	"lexgate/backend/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the audit log. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	meta := sql.NullString{String: a.Metadata, Valid: a.Metadata != ""}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admission_audit (id, tenant_id, user_id, session_id, action, resource, reason, ip, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.TenantID, a.UserID, a.SessionID, a.Action, a.Resource, a.Reason, a.IP, meta, a.CreatedAt)
	return err
}

// ListByTenant returns the tenant's audit logs, newest first, paginated by limit and offset.
// Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int32) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, user_id, session_id, action, resource, reason, ip, metadata, created_at
		FROM admission_audit WHERE tenant_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AuditLog
	for rows.Next() {
		var (
			a    domain.AuditLog
			meta sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.TenantID, &a.UserID, &a.SessionID, &a.Action, &a.Resource, &a.Reason, &a.IP, &meta, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Metadata = meta.String
		out = append(out, &a)
	}
	return out, rows.Err()
}
