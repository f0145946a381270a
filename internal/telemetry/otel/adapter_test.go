package otel

import (
	"context"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	admissiondomain "lexgate/backend/internal/admission/domain"
	"lexgate/backend/internal/telemetry"
)

func TestNewEventEmitter_NilProvider_ReturnsNoop(t *testing.T) {
	em := NewEventEmitter(nil)
	if em == nil {
		t.Fatal("NewEventEmitter(nil) returned nil")
	}
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("noop Emit(ctx, nil): %v", err)
	}
	if err := em.Emit(context.Background(), &telemetry.DecisionEvent{Method: "/m"}); err != nil {
		t.Errorf("noop Emit(ctx, event): %v", err)
	}
}

func TestEmit_WithSDKProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	em := NewEventEmitter(provider)
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit(ctx, nil): %v", err)
	}
	if err := em.Emit(context.Background(), &telemetry.DecisionEvent{Method: "/m", Decision: admissiondomain.Allow()}); err != nil {
		t.Errorf("Emit: %v", err)
	}
}

// recordCapture stores the last Record passed to Emit for assertion.
type recordCapture struct {
	rec otellog.Record
}

func (r *recordCapture) Emit(ctx context.Context, rec otellog.Record) {
	r.rec = rec
}

func attributes(rec otellog.Record) map[string]otellog.Value {
	attrs := make(map[string]otellog.Value)
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value
		return true
	})
	return attrs
}

func TestEmit_RateLimitedDeny(t *testing.T) {
	cap := &recordCapture{}
	em := NewEventEmitterWithLogger(cap)
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	event := &telemetry.DecisionEvent{
		Method:    "/lexgate.documents.v1.DocumentService/GenerateDocument",
		Operation: "document.generate",
		UserID:    "user1",
		SessionID: "sess1",
		TenantID:  "firm1",
		Decision:  admissiondomain.RateLimited(7, 0),
		At:        at,
	}
	if err := em.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	rec := cap.rec

	if got := rec.Body().AsString(); got != "deny(rate_limited)" {
		t.Errorf("body = %q, want %q", got, "deny(rate_limited)")
	}
	if rec.Severity() != otellog.SeverityWarn {
		t.Errorf("severity = %v, want WARN", rec.Severity())
	}
	if !rec.Timestamp().Equal(at) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp(), at)
	}
	attrs := attributes(rec)
	wantStr := map[string]string{
		"method": event.Method, "operation": "document.generate", "user_id": "user1",
		"session_id": "sess1", "tenant_id": "firm1", "reason": "rate_limited",
	}
	for k, v := range wantStr {
		if attrs[k].AsString() != v {
			t.Errorf("attr %q = %q, want %q", k, attrs[k].AsString(), v)
		}
	}
	if attrs["retry_after_seconds"].AsInt64() != 7 {
		t.Errorf("retry_after_seconds = %v", attrs["retry_after_seconds"])
	}
	if attrs["allowed"].AsBool() {
		t.Error("allowed = true on deny")
	}
}

func TestEmit_AllowWithTrialAndRevocations(t *testing.T) {
	cap := &recordCapture{}
	em := NewEventEmitterWithLogger(cap)
	d := admissiondomain.Allow()
	d.Remaining, d.Limit = 2, 3
	event := &telemetry.DecisionEvent{
		Method:     "/m",
		UserID:     "user1",
		Decision:   d,
		FailedOpen: true,
		Revoked:    []string{"a", "b"},
	}
	before := time.Now().UTC()
	if err := em.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	rec := cap.rec
	if rec.Severity() != otellog.SeverityInfo {
		t.Errorf("severity = %v, want INFO", rec.Severity())
	}
	if rec.Timestamp().Before(before) {
		t.Errorf("timestamp = %v, want now", rec.Timestamp())
	}
	attrs := attributes(rec)
	if attrs["trial_remaining"].AsInt64() != 2 || attrs["trial_limit"].AsInt64() != 3 {
		t.Errorf("trial attrs = %v / %v", attrs["trial_remaining"], attrs["trial_limit"])
	}
	if !attrs["failed_open"].AsBool() {
		t.Error("failed_open not set")
	}
	if attrs["revoked_sessions"].AsString() != "a,b" || attrs["revoked_count"].AsInt64() != 2 {
		t.Errorf("revoked attrs = %v / %v", attrs["revoked_sessions"], attrs["revoked_count"])
	}
	if _, ok := attrs["reason"]; ok {
		t.Error("reason set on allow")
	}
	if _, ok := attrs["retry_after_seconds"]; ok {
		t.Error("retry_after_seconds set on allow")
	}
}
