// Package telemetry emits admission decision events. Emission is best-effort and never changes a decision.
package telemetry

import (
	"context"
	"time"

	admissiondomain "lexgate/backend/internal/admission/domain"
)

// DecisionEvent describes one admission decision.
type DecisionEvent struct {
	Method     string
	Operation  string
	UserID     string
	SessionID  string
	TenantID   string
	Decision   admissiondomain.Decision
	FailedOpen bool
	// Revoked lists sessions revoked while admitting this request.
	Revoked []string
	At      time.Time
}

// EventEmitter emits decision events (e.g. to OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *DecisionEvent) error
}
