// Package domain holds the types shared by the admission gates: the structured decision each gate renders,
// the acting principal, and the policy applied when a collaborator cannot be reached.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Reason is the machine-readable code attached to a deny.
type Reason string

const (
	ReasonRateLimited       Reason = "rate_limited"
	ReasonTrialExhausted    Reason = "trial_exhausted"
	ReasonForbidden         Reason = "forbidden"
	ReasonSessionSuperseded Reason = "session_superseded"
	ReasonUnauthenticated   Reason = "unauthenticated"
	// ReasonInternal marks a contract violation in the calling layer (e.g. no identity on an
	// authenticated path). It is not user-correctable and carries no details.
	ReasonInternal Reason = "internal"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed bool
	Reason  Reason

	// RetryAfterSeconds and TokensRemaining are set on rate_limited denials. On an allow, TokenDrawn
	// reports that the operation drew a capability token and TokensRemaining is what was left after it.
	RetryAfterSeconds int
	TokensRemaining   int
	TokenDrawn        bool

	// Remaining and Limit describe the trial quota. A trial_exhausted deny always has Remaining == 0.
	Remaining int
	Limit     int

	// Unavailable is set when the deny was produced by a fail-closed policy because a collaborator
	// could not be reached, not by the policy itself.
	Unavailable bool
	// ProvisioningRequired is set when the principal has no tenant yet and must be routed to provisioning.
	ProvisioningRequired bool
}

// Allow returns an allowing decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a deny with the given reason and no details.
func Deny(reason Reason) Decision {
	return Decision{Reason: reason}
}

// RateLimited returns a rate_limited deny.
func RateLimited(retryAfterSeconds, tokensRemaining int) Decision {
	return Decision{
		Reason:            ReasonRateLimited,
		RetryAfterSeconds: retryAfterSeconds,
		TokensRemaining:   tokensRemaining,
	}
}

// TrialExhausted returns a trial_exhausted deny for the configured limit.
func TrialExhausted(limit int) Decision {
	return Decision{Reason: ReasonTrialExhausted, Remaining: 0, Limit: limit}
}

// PendingProvisioning returns a forbidden deny that routes the caller to tenant provisioning.
func PendingProvisioning() Decision {
	return Decision{Reason: ReasonForbidden, ProvisioningRequired: true}
}

// Internal returns the generic deny used for contract violations.
func Internal() Decision {
	return Decision{Reason: ReasonInternal}
}

func (d Decision) String() string {
	if d.Allowed {
		return "allow"
	}
	return "deny(" + string(d.Reason) + ")"
}

// ErrCollaboratorUnavailable wraps every failure to reach an external collaborator (timeout, transport
// or backend error). Gates resolve it through their FailurePolicy.
var ErrCollaboratorUnavailable = errors.New("collaborator unavailable")

// Outcome is what a gate observed: either a decision, or a collaborator failure that still has to be
// resolved by policy.
type Outcome struct {
	Decision Decision
	Err      error
}

// Decided wraps a decision reached normally.
func Decided(d Decision) Outcome {
	return Outcome{Decision: d}
}

// Unavailable wraps a collaborator failure.
func Unavailable(err error) Outcome {
	if err != nil && !errors.Is(err, ErrCollaboratorUnavailable) {
		err = fmt.Errorf("%w: %w", ErrCollaboratorUnavailable, err)
	}
	if err == nil {
		err = ErrCollaboratorUnavailable
	}
	return Outcome{Err: err}
}

// IsUnavailable reports whether the outcome is a collaborator failure.
func (o Outcome) IsUnavailable() bool {
	return o.Err != nil
}

// FailurePolicy decides what an unavailable collaborator means for the request.
type FailurePolicy int

const (
	// FailClosed denies the request.
	FailClosed FailurePolicy = iota
	// FailOpen allows the request.
	FailOpen
)

// ParseFailurePolicy parses "open" or "closed" (case-insensitive).
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open":
		return FailOpen, nil
	case "closed":
		return FailClosed, nil
	default:
		return FailClosed, fmt.Errorf("unknown failure policy %q", s)
	}
}

func (p FailurePolicy) String() string {
	if p == FailOpen {
		return "open"
	}
	return "closed"
}

// Resolve turns an outcome into a decision. Decided outcomes pass through unchanged. Unavailable
// outcomes become Allow under FailOpen, or closedDeny (marked Unavailable) under FailClosed.
// failedOpen reports whether an unavailable outcome was allowed.
func (p FailurePolicy) Resolve(o Outcome, closedDeny Decision) (d Decision, failedOpen bool) {
	if !o.IsUnavailable() {
		return o.Decision, false
	}
	if p == FailOpen {
		return Allow(), true
	}
	closedDeny.Allowed = false
	closedDeny.Unavailable = true
	return closedDeny, false
}
