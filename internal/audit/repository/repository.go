package repository

import (
	"context"

	"lexgate/backend/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	ListByTenant(ctx context.Context, tenantID string, limit, offset int32) ([]*domain.AuditLog, error)
}
