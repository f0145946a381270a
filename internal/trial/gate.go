// Package trial caps each (user, service) pair to a fixed number of free uses.
//
// Callers must Check before running the gated operation and Record only after it succeeded, so a failed
// operation never consumes quota. Check and Record are not one atomic step: requests from the same user
// that pass Check concurrently may all run, but the store's increment-with-ceiling keeps the recorded
// count at or below the limit, and every later Check denies.
package trial

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	admissiondomain "lexgate/backend/internal/admission/domain"
	"lexgate/backend/internal/trial/domain"
	"lexgate/backend/internal/trial/repository"
)

// ErrLimitReached is returned by Record when the usage was already at the ceiling.
var ErrLimitReached = errors.New("trial: limit already reached")

// Gate checks and records trial usage against per-service limits.
type Gate struct {
	store  repository.Store
	limits map[string]int
	policy admissiondomain.FailurePolicy
}

// NewGate returns a Gate. limits maps service name to free uses; services absent from limits are not
// trial-gated. policy applies when the store cannot be reached; quota gates cost, so callers normally
// pass FailClosed.
func NewGate(store repository.Store, limits map[string]int, policy admissiondomain.FailurePolicy) *Gate {
	cp := make(map[string]int, len(limits))
	for k, v := range limits {
		cp[k] = v
	}
	return &Gate{store: store, limits: cp, policy: policy}
}

// Limit returns the configured limit for service and whether the service is trial-gated.
func (g *Gate) Limit(service string) (int, bool) {
	n, ok := g.limits[service]
	return n, ok
}

// Check decides whether tc may use service once more. Store failures are resolved by the gate's policy.
func (g *Gate) Check(ctx context.Context, tc admissiondomain.TenantContext, service string) admissiondomain.Decision {
	limit, ok := g.limits[service]
	if !ok {
		return admissiondomain.Allow()
	}
	count, err := g.store.Count(ctx, tc.User.ID, service)
	if err != nil {
		d, failedOpen := g.policy.Resolve(admissiondomain.Unavailable(err), admissiondomain.TrialExhausted(limit))
		log.Warn().Err(err).
			Str("user_id", tc.User.ID).
			Str("service", service).
			Str("policy", g.policy.String()).
			Bool("failed_open", failedOpen).
			Msg("trial: quota store unavailable")
		return d
	}
	u := domain.Usage{UserID: tc.User.ID, Service: service, Count: count, Limit: limit}
	if u.Exhausted() {
		return admissiondomain.TrialExhausted(limit)
	}
	d := admissiondomain.Allow()
	d.Remaining = u.Remaining()
	d.Limit = limit
	return d
}

// Record counts one successful use of service. It is a no-op for services that are not trial-gated.
func (g *Gate) Record(ctx context.Context, tc admissiondomain.TenantContext, service string) error {
	limit, ok := g.limits[service]
	if !ok {
		return nil
	}
	_, incremented, err := g.store.IncrementWithCeiling(ctx, tc.User.ID, service, limit)
	if err != nil {
		return fmt.Errorf("trial: record %s for %s: %w", service, tc.User.ID, err)
	}
	if !incremented {
		return ErrLimitReached
	}
	return nil
}

// Usage returns the current record for the pair. Untracked services report a zero limit.
func (g *Gate) Usage(ctx context.Context, userID, service string) (domain.Usage, error) {
	limit := g.limits[service]
	count, err := g.store.Count(ctx, userID, service)
	if err != nil {
		return domain.Usage{}, err
	}
	return domain.Usage{UserID: userID, Service: service, Count: count, Limit: limit}, nil
}
