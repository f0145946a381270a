package otel

import (
	"context"
	"strings"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	admissiondomain "lexgate/backend/internal/admission/domain"
	"lexgate/backend/internal/telemetry"
)

// NewEventEmitter returns an EventEmitter that sends decision events as OTel log records via the given
// LoggerProvider. If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return NewEventEmitterWithLogger(provider.Logger("lexgate.admission"))
}

// RecordEmitter is the part of otellog.Logger the emitter uses.
type RecordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewEventEmitterWithLogger returns an EventEmitter writing to logger.
func NewEventEmitterWithLogger(logger RecordEmitter) telemetry.EventEmitter {
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *telemetry.DecisionEvent) error { return nil }

type otelEmitter struct {
	logger RecordEmitter
}

// Emit converts the decision event to an OTel log record and emits it. Denials are logged at WARN.
func (e *otelEmitter) Emit(ctx context.Context, event *telemetry.DecisionEvent) error {
	if event == nil {
		return nil
	}
	d := event.Decision
	rec := otellog.Record{}
	rec.SetTimestamp(event.At)
	if event.At.IsZero() {
		rec.SetTimestamp(time.Now().UTC())
	}
	rec.SetBody(otellog.StringValue(d.String()))
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetSeverityText("INFO")
	if !d.Allowed {
		rec.SetSeverity(otellog.SeverityWarn)
		rec.SetSeverityText("WARN")
	}

	rec.AddAttributes(
		otellog.Bool("allowed", d.Allowed),
		otellog.String("method", event.Method),
	)
	addString(&rec, "operation", event.Operation)
	addString(&rec, "user_id", event.UserID)
	addString(&rec, "session_id", event.SessionID)
	addString(&rec, "tenant_id", event.TenantID)
	addString(&rec, "reason", string(d.Reason))
	if d.Reason == admissiondomain.ReasonRateLimited {
		rec.AddAttributes(
			otellog.Int("retry_after_seconds", d.RetryAfterSeconds),
			otellog.Int("tokens_remaining", d.TokensRemaining),
		)
	}
	if d.Limit > 0 {
		rec.AddAttributes(
			otellog.Int("trial_remaining", d.Remaining),
			otellog.Int("trial_limit", d.Limit),
		)
	}
	if d.Unavailable {
		rec.AddAttributes(otellog.Bool("collaborator_unavailable", true))
	}
	if event.FailedOpen {
		rec.AddAttributes(otellog.Bool("failed_open", true))
	}
	if len(event.Revoked) > 0 {
		rec.AddAttributes(
			otellog.String("revoked_sessions", strings.Join(event.Revoked, ",")),
			otellog.Int("revoked_count", len(event.Revoked)),
		)
	}
	e.logger.Emit(ctx, rec)
	return nil
}

func addString(rec *otellog.Record, key, value string) {
	if value != "" {
		rec.AddAttributes(otellog.String(key, value))
	}
}
