// Package audit persists the admission audit trail: denials, fail-open admissions and session revocations.
// Allowed requests that needed no intervention are not recorded.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"lexgate/backend/internal/audit/domain"
	auditrepo "lexgate/backend/internal/audit/repository"
	"lexgate/backend/internal/telemetry"
)

// SentinelTenantID is the tenant_id used for events that have no tenant (e.g. pending provisioning).
const SentinelTenantID = "_system"

// IPExtractor returns the client IP from the request context (e.g. gRPC metadata or peer).
type IPExtractor func(context.Context) string

// Logger implements telemetry.EventEmitter over the audit repository.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	nowF        func() time.Time
}

var _ telemetry.EventEmitter = (*Logger)(nil)

// NewLogger returns a Logger that persists to repo and uses ipExtractor for client IP.
// ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor, nowF: time.Now}
}

type entryMetadata struct {
	Method    string   `json:"method"`
	Operation string   `json:"operation,omitempty"`
	Verb      string   `json:"verb"`
	Revoked   []string `json:"revoked,omitempty"`
	Retry     int      `json:"retry_after_seconds,omitempty"`
	Limit     int      `json:"trial_limit,omitempty"`
	Outage    bool     `json:"collaborator_unavailable,omitempty"`
}

// Emit writes one entry per auditable fact in event. It returns the first repository error; the remaining
// entries are still attempted.
func (l *Logger) Emit(ctx context.Context, event *telemetry.DecisionEvent) error {
	if l.repo == nil || event == nil {
		return nil
	}
	ar := ParseFullMethod(event.Method)
	d := event.Decision
	md := entryMetadata{Method: event.Method, Operation: event.Operation, Verb: ar.Action}

	var actions []string
	if len(event.Revoked) > 0 {
		actions = append(actions, domain.ActionSessionsRevoked)
	}
	switch {
	case !d.Allowed:
		actions = append(actions, domain.ActionDenied)
		md.Retry, md.Limit, md.Outage = d.RetryAfterSeconds, d.Limit, d.Unavailable
	case event.FailedOpen:
		actions = append(actions, domain.ActionFailedOpen)
	}
	if len(actions) == 0 {
		return nil
	}

	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	tenantID := event.TenantID
	if tenantID == "" {
		tenantID = SentinelTenantID
	}
	at := event.At
	if at.IsZero() {
		at = l.nowF().UTC()
	}

	var firstErr error
	for _, action := range actions {
		entryMD, reason := md, ""
		switch action {
		case domain.ActionSessionsRevoked:
			entryMD = entryMetadata{Method: md.Method, Operation: md.Operation, Verb: md.Verb, Revoked: event.Revoked}
		case domain.ActionDenied:
			reason = string(d.Reason)
		}
		raw, err := json.Marshal(entryMD)
		if err != nil {
			return err
		}
		entry := &domain.AuditLog{
			ID:        uuid.New().String(),
			TenantID:  tenantID,
			UserID:    event.UserID,
			SessionID: event.SessionID,
			Action:    action,
			Resource:  ar.Resource,
			Reason:    reason,
			IP:        ip,
			Metadata:  string(raw),
			CreatedAt: at,
		}
		if err := l.repo.Create(ctx, entry); err != nil {
			log.Warn().Err(err).Str("action", action).Str("resource", ar.Resource).Msg("audit: failed to log event")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
