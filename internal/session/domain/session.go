package domain

import "time"

// Status is the lifecycle state of a session as reported by the session authority.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// Session is a login session of a user. It is created by the identity authority at login and only ever
// transitions from active to revoked; this layer never deletes sessions.
type Session struct {
	ID        string
	UserID    string
	TenantID  string
	Status    Status
	CreatedAt time.Time
	RevokedAt *time.Time // nil when not revoked
}

// IsActive reports whether the session is still active.
func (s *Session) IsActive() bool {
	return s != nil && s.Status == StatusActive
}
