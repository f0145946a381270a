package domain

import (
	"errors"
	"testing"
)

func TestFailurePolicy_Resolve(t *testing.T) {
	unavailable := Unavailable(errors.New("dial tcp: timeout"))

	testCases := []struct {
		name           string
		policy         FailurePolicy
		outcome        Outcome
		wantAllowed    bool
		wantUnavail    bool
		wantFailedOpen bool
		wantReason     Reason
	}{
		{"decided allow passes through", FailClosed, Decided(Allow()), true, false, false, ""},
		{"decided deny passes through open", FailOpen, Decided(Deny(ReasonForbidden)), false, false, false, ReasonForbidden},
		{"unavailable open allows", FailOpen, unavailable, true, false, true, ""},
		{"unavailable closed denies", FailClosed, unavailable, false, true, false, ReasonTrialExhausted},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, failedOpen := tc.policy.Resolve(tc.outcome, TrialExhausted(3))
			if d.Allowed != tc.wantAllowed {
				t.Errorf("Allowed = %v, want %v", d.Allowed, tc.wantAllowed)
			}
			if d.Unavailable != tc.wantUnavail {
				t.Errorf("Unavailable = %v, want %v", d.Unavailable, tc.wantUnavail)
			}
			if failedOpen != tc.wantFailedOpen {
				t.Errorf("failedOpen = %v, want %v", failedOpen, tc.wantFailedOpen)
			}
			if d.Reason != tc.wantReason {
				t.Errorf("Reason = %q, want %q", d.Reason, tc.wantReason)
			}
		})
	}
}

func TestUnavailable_WrapsSentinel(t *testing.T) {
	cause := errors.New("connection refused")
	o := Unavailable(cause)
	if !errors.Is(o.Err, ErrCollaboratorUnavailable) {
		t.Errorf("err %v does not wrap ErrCollaboratorUnavailable", o.Err)
	}
	if !errors.Is(o.Err, cause) {
		t.Errorf("err %v does not wrap cause", o.Err)
	}
	if !Unavailable(nil).IsUnavailable() {
		t.Error("Unavailable(nil) should still be unavailable")
	}
}

func TestParseFailurePolicy(t *testing.T) {
	if p, err := ParseFailurePolicy(" Open "); err != nil || p != FailOpen {
		t.Errorf("ParseFailurePolicy(open) = %v, %v", p, err)
	}
	if p, err := ParseFailurePolicy("closed"); err != nil || p != FailClosed {
		t.Errorf("ParseFailurePolicy(closed) = %v, %v", p, err)
	}
	if _, err := ParseFailurePolicy("sometimes"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestTrialExhausted_RemainingZero(t *testing.T) {
	d := TrialExhausted(5)
	if d.Allowed || d.Remaining != 0 || d.Limit != 5 || d.Reason != ReasonTrialExhausted {
		t.Errorf("TrialExhausted(5) = %+v", d)
	}
}
