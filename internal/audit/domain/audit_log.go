package domain

import "time"

// Actions recorded in the admission audit trail.
const (
	ActionDenied          = "admission_denied"
	ActionFailedOpen      = "admission_failed_open"
	ActionSessionsRevoked = "sessions_revoked"
)

// AuditLog is one audit trail entry.
type AuditLog struct {
	ID        string
	TenantID  string
	UserID    string
	SessionID string
	Action    string
	Resource  string
	Reason    string
	IP        string
	Metadata  string // JSON
	CreatedAt time.Time
}
