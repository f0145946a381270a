package admission

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	admissiondomain "lexgate/backend/internal/admission/domain"
)

// Metrics holds the admission instruments. A nil *Metrics records nothing.
type Metrics struct {
	decisions   metric.Int64Counter
	revocations metric.Int64Counter
	failures    metric.Int64Counter
}

// NewMetrics creates the admission instruments on meter. tokens, when non-nil, backs the
// lexgate.ratelimit.tokens gauge.
func NewMetrics(meter metric.Meter, tokens func() int) (*Metrics, error) {
	decisions, err := meter.Int64Counter("lexgate.admission.decisions",
		metric.WithDescription("Admission decisions by outcome, reason and operation."),
		metric.WithUnit("{decision}"))
	if err != nil {
		return nil, err
	}
	revocations, err := meter.Int64Counter("lexgate.session.revocations",
		metric.WithDescription("Sessions revoked by single-session enforcement."),
		metric.WithUnit("{session}"))
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("lexgate.collaborator.failures",
		metric.WithDescription("Collaborator calls that failed and were resolved by failure policy."),
		metric.WithUnit("{failure}"))
	if err != nil {
		return nil, err
	}
	if tokens != nil {
		_, err = meter.Int64ObservableGauge("lexgate.ratelimit.tokens",
			metric.WithDescription("Tokens currently available in the capability bucket."),
			metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
				o.Observe(int64(tokens()))
				return nil
			}))
		if err != nil {
			return nil, err
		}
	}
	return &Metrics{decisions: decisions, revocations: revocations, failures: failures}, nil
}

func (m *Metrics) decision(ctx context.Context, operation string, d admissiondomain.Decision) {
	if m == nil {
		return
	}
	outcome := "allow"
	if !d.Allowed {
		outcome = "deny"
	}
	m.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("reason", string(d.Reason)),
		attribute.String("operation", operation),
	))
}

func (m *Metrics) revoked(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.revocations.Add(ctx, int64(n))
}

func (m *Metrics) collaboratorFailure(ctx context.Context, component string, policy admissiondomain.FailurePolicy) {
	if m == nil {
		return
	}
	m.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component", component),
		attribute.String("policy", policy.String()),
	))
}
