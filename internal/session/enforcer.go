// Package session enforces that a principal has at most one active session.
//
// Enforcement runs on every authenticated request with the request's own session as the trigger: if the
// user has other active sessions they are revoked through the session authority, and if the trigger is no
// longer active the request is denied as superseded. A freshly created session wins by being the trigger
// of its first request, so session-creation events need no separate path.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	admissiondomain "lexgate/backend/internal/admission/domain"
	"lexgate/backend/internal/session/domain"
	"lexgate/backend/internal/session/repository"
)

// DefaultTimeout bounds one enforcement round trip to the session authority.
const DefaultTimeout = 2 * time.Second

// ErrMissingIdentity is returned when Enforce is called without a user or session id.
var ErrMissingIdentity = errors.New("session: user and session id required")

// Result is the outcome of one enforcement.
type Result struct {
	Decision admissiondomain.Decision
	// Revoked lists the session ids revoked by this call.
	Revoked []string
	// FailedOpen is set when the authority could not be reached and the request was allowed anyway.
	FailedOpen bool
}

// Enforcer applies the single-active-session rule.
type Enforcer struct {
	authority repository.Authority
	timeout   time.Duration
	policy    admissiondomain.FailurePolicy
	registrar repository.Registrar
	locks     *keyLock
}

// Option configures an Enforcer.
type Option func(*Enforcer)

// WithTimeout sets the bound for the authority round trip. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(e *Enforcer) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithFailurePolicy overrides the policy applied when the authority is unavailable. The default is FailOpen:
// single-session is device hygiene, not an authorization boundary.
func WithFailurePolicy(p admissiondomain.FailurePolicy) Option {
	return func(e *Enforcer) { e.policy = p }
}

// WithRegistrar makes the enforcer register a triggering session the authority has never seen before
// listing. Sessions the authority already knows, revoked ones included, are left as they are. Meant for
// authorities that are not fed by the identity provider, such as the in-memory one.
func WithRegistrar(r repository.Registrar) Option {
	return func(e *Enforcer) { e.registrar = r }
}

// NewEnforcer returns an Enforcer backed by authority.
func NewEnforcer(authority repository.Authority, opts ...Option) *Enforcer {
	e := &Enforcer{
		authority: authority,
		timeout:   DefaultTimeout,
		policy:    admissiondomain.FailOpen,
		locks:     newKeyLock(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enforce makes sessionID the only active session of userID, or denies with session_superseded if it is no
// longer active. Enforcements for the same user are serialized within the process; waiting for that turn
// counts against the same timeout as the authority round trip. Revocation is idempotent, so an enforcement
// cut short by cancellation is completed by the next one.
func (e *Enforcer) Enforce(ctx context.Context, userID, sessionID string) (Result, error) {
	if userID == "" || sessionID == "" {
		return Result{}, ErrMissingIdentity
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	unlock, err := e.locks.Lock(ctx, userID)
	if err != nil {
		return e.unavailable(userID, sessionID, err), nil
	}
	defer unlock()

	if e.registrar != nil {
		if err := e.registrar.RegisterIfAbsent(ctx, &domain.Session{ID: sessionID, UserID: userID}); err != nil {
			return e.unavailable(userID, sessionID, err), nil
		}
	}

	active, err := e.authority.ListActiveByUser(ctx, userID)
	if err != nil {
		return e.unavailable(userID, sessionID, err), nil
	}

	found := false
	var superseded []string
	for _, s := range active {
		if s.ID == sessionID {
			found = true
			continue
		}
		superseded = append(superseded, s.ID)
	}
	if !found {
		log.Info().Str("user_id", userID).Str("session_id", sessionID).Msg("session: request from superseded session")
		return Result{Decision: admissiondomain.Deny(admissiondomain.ReasonSessionSuperseded)}, nil
	}
	if len(superseded) == 0 {
		return Result{Decision: admissiondomain.Allow()}, nil
	}

	revoked := make([]bool, len(superseded))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range superseded {
		g.Go(func() error {
			if err := e.authority.Revoke(gctx, id); err != nil {
				return err
			}
			revoked[i] = true
			return nil
		})
	}
	err = g.Wait()

	var ids []string
	for i, ok := range revoked {
		if ok {
			ids = append(ids, superseded[i])
		}
	}
	if len(ids) > 0 {
		log.Info().Str("user_id", userID).Str("session_id", sessionID).Strs("revoked", ids).Msg("session: revoked superseded sessions")
	}
	if err != nil {
		res := e.unavailable(userID, sessionID, err)
		res.Revoked = ids
		return res, nil
	}
	return Result{Decision: admissiondomain.Allow(), Revoked: ids}, nil
}

func (e *Enforcer) unavailable(userID, sessionID string, err error) Result {
	d, failedOpen := e.policy.Resolve(admissiondomain.Unavailable(err), admissiondomain.Deny(admissiondomain.ReasonSessionSuperseded))
	log.Warn().Err(err).
		Str("user_id", userID).
		Str("session_id", sessionID).
		Str("policy", e.policy.String()).
		Bool("failed_open", failedOpen).
		Msg("session: authority unavailable")
	return Result{Decision: d, FailedOpen: failedOpen}
}
