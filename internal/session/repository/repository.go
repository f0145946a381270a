package repository

import (
	"context"

	"lexgate/backend/internal/session/domain"
)

// Authority is the external system of record for login sessions, keyed by user id.
type Authority interface {
	// ListActiveByUser returns the user's sessions whose status is active.
	ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	// Revoke marks the session revoked. Revoking an already revoked or unknown session is a no-op.
	Revoke(ctx context.Context, id string) error
}

// Registrar stores a session only if its id is unknown to the authority.
type Registrar interface {
	RegisterIfAbsent(ctx context.Context, s *domain.Session) error
}
