// Package admission runs the per-request admission gates in order and renders one structured decision.
//
// Order: resolve tenant context, route pending-provisioning principals, enforce the single active session,
// check the operation's permission and resource ownership, then for capability-limited operations draw a
// token and check the trial quota. Decisions are sequential with no cross-gate transaction: a token drawn
// before a later deny is not refunded.
package admission

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	admissiondomain "lexgate/backend/internal/admission/domain"
	"lexgate/backend/internal/platform/rbac"
	"lexgate/backend/internal/session"
	"lexgate/backend/internal/telemetry"
	"lexgate/backend/internal/trial"
)

// SessionEnforcer applies the single-active-session rule.
type SessionEnforcer interface {
	Enforce(ctx context.Context, userID, sessionID string) (session.Result, error)
}

// Limiter is the process-wide capability bucket.
type Limiter interface {
	Take() (ok bool, remaining int, retryAfterSeconds int)
}

// TrialGate checks and records trial usage.
type TrialGate interface {
	Check(ctx context.Context, tc admissiondomain.TenantContext, service string) admissiondomain.Decision
	Record(ctx context.Context, tc admissiondomain.TenantContext, service string) error
}

// Admission is the state carried from Admit to Complete for one request.
type Admission struct {
	Method    string
	Operation Operation
	// Cataloged is false for methods that only require an authenticated, consistent session.
	Cataloged bool
	Tenant    admissiondomain.TenantContext
	Decision  admissiondomain.Decision
}

// Pipeline runs the admission gates.
type Pipeline struct {
	catalog  *Catalog
	sessions SessionEnforcer
	limiter  Limiter
	trial    TrialGate
	metrics  *Metrics
	events   telemetry.EventEmitter
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics records decisions on m.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithEventEmitter emits one decision event per admission.
func WithEventEmitter(e telemetry.EventEmitter) Option {
	return func(p *Pipeline) { p.events = e }
}

// NewPipeline returns a Pipeline. limiter and trialGate may be nil, disabling those gates.
func NewPipeline(catalog *Catalog, sessions SessionEnforcer, limiter Limiter, trialGate TrialGate, opts ...Option) *Pipeline {
	p := &Pipeline{catalog: catalog, sessions: sessions, limiter: limiter, trial: trialGate}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Catalog returns the pipeline's operation catalog.
func (p *Pipeline) Catalog() *Catalog {
	return p.catalog
}

// Admit decides whether the request for method may proceed. req is inspected for rbac.ResourceScoped.
func (p *Pipeline) Admit(ctx context.Context, method string, req any) (Admission, admissiondomain.Decision) {
	adm := Admission{Method: method}
	adm.Operation, adm.Cataloged = p.catalog.Lookup(method)
	ev := telemetry.DecisionEvent{Method: method, Operation: adm.Operation.Name}

	d := p.admit(ctx, &adm, req, &ev)
	adm.Decision = d

	opName := adm.Operation.Name
	if !adm.Cataloged {
		opName = "uncataloged"
	}
	p.metrics.decision(ctx, opName, d)
	if p.events != nil {
		ev.UserID = adm.Tenant.User.ID
		ev.SessionID = adm.Tenant.SessionID
		ev.TenantID = adm.Tenant.TenantID
		ev.Decision = d
		telemetry.EmitAsync(p.events, ctx, &ev)
	}
	return adm, d
}

func (p *Pipeline) admit(ctx context.Context, adm *Admission, req any, ev *telemetry.DecisionEvent) admissiondomain.Decision {
	tc, err := rbac.ResolveContext(ctx)
	adm.Tenant = tc
	if err != nil {
		return resolveDecision(adm.Method, err)
	}

	res, err := p.sessions.Enforce(ctx, tc.User.ID, tc.SessionID)
	if err != nil {
		log.Error().Err(err).Str("method", adm.Method).Msg("admission: session enforcement rejected identity")
		return admissiondomain.Internal()
	}
	ev.Revoked = res.Revoked
	ev.FailedOpen = res.FailedOpen
	p.metrics.revoked(ctx, len(res.Revoked))
	if res.FailedOpen {
		p.metrics.collaboratorFailure(ctx, "session", admissiondomain.FailOpen)
	}
	if !res.Decision.Allowed {
		if res.Decision.Unavailable {
			p.metrics.collaboratorFailure(ctx, "session", admissiondomain.FailClosed)
		}
		return res.Decision
	}

	if !adm.Cataloged {
		return admissiondomain.Allow()
	}
	op := adm.Operation

	var target *rbac.Resource
	if rs, ok := req.(rbac.ResourceScoped); ok {
		r := rs.TargetResource()
		target = &r
	}
	if d := rbac.Authorize(tc, op.Permission, target, op.Mode); !d.Allowed {
		return d
	}

	allow := admissiondomain.Allow()
	if op.CapabilityLimited && p.limiter != nil {
		ok, remaining, retryAfter := p.limiter.Take()
		if !ok {
			return admissiondomain.RateLimited(retryAfter, remaining)
		}
		allow.TokensRemaining, allow.TokenDrawn = remaining, true
	}
	if op.TrialService != "" && p.trial != nil {
		d := p.trial.Check(ctx, tc, op.TrialService)
		if !d.Allowed {
			if d.Unavailable {
				p.metrics.collaboratorFailure(ctx, "trial", admissiondomain.FailClosed)
			}
			return d
		}
		allow.Remaining, allow.Limit = d.Remaining, d.Limit
	}
	return allow
}

func resolveDecision(method string, err error) admissiondomain.Decision {
	switch {
	case errors.Is(err, rbac.ErrNoIdentity):
		log.Error().Str("method", method).Msg("admission: authenticated path reached without identity")
		return admissiondomain.Internal()
	case errors.Is(err, rbac.ErrUnauthenticated):
		return admissiondomain.Deny(admissiondomain.ReasonUnauthenticated)
	case errors.Is(err, rbac.ErrPendingProvisioning):
		return admissiondomain.PendingProvisioning()
	default:
		log.Warn().Err(err).Str("method", method).Msg("admission: tenant context rejected")
		return admissiondomain.Deny(admissiondomain.ReasonForbidden)
	}
}

// Complete records trial usage after the admitted operation succeeded. Record failures are logged only;
// the operation has already happened.
func (p *Pipeline) Complete(ctx context.Context, adm Admission) {
	if !adm.Decision.Allowed || adm.Operation.TrialService == "" || p.trial == nil {
		return
	}
	err := p.trial.Record(ctx, adm.Tenant, adm.Operation.TrialService)
	switch {
	case err == nil:
	case errors.Is(err, trial.ErrLimitReached):
		log.Info().
			Str("user_id", adm.Tenant.User.ID).
			Str("service", adm.Operation.TrialService).
			Msg("admission: trial usage already at limit")
	default:
		log.Warn().Err(err).
			Str("user_id", adm.Tenant.User.ID).
			Str("service", adm.Operation.TrialService).
			Msg("admission: failed to record trial usage")
	}
}
