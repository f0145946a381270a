package interceptors

import (
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	admissiondomain "lexgate/backend/internal/admission/domain"
)

// Metadata keys carrying decision details to the client.
const (
	TrailerDenyReason           = "x-deny-reason"
	TrailerRetryAfter           = "retry-after"
	TrailerRateLimitRemaining   = "x-ratelimit-remaining"
	TrailerTrialRemaining       = "x-trial-remaining"
	TrailerTrialLimit           = "x-trial-limit"
	TrailerProvisioningRequired = "x-provisioning-required"
)

// StatusFor maps a deny to a gRPC status error. An allowing decision maps to nil.
func StatusFor(d admissiondomain.Decision) error {
	if d.Allowed {
		return nil
	}
	if d.Unavailable {
		return status.Error(codes.Unavailable, "admission dependency unavailable; retry later")
	}
	switch d.Reason {
	case admissiondomain.ReasonRateLimited:
		return status.Errorf(codes.ResourceExhausted, "rate limited; retry in %ds", d.RetryAfterSeconds)
	case admissiondomain.ReasonTrialExhausted:
		return status.Errorf(codes.ResourceExhausted, "trial limit of %d uses reached", d.Limit)
	case admissiondomain.ReasonForbidden:
		if d.ProvisioningRequired {
			return status.Error(codes.PermissionDenied, "tenant pending provisioning")
		}
		return status.Error(codes.PermissionDenied, "permission denied")
	case admissiondomain.ReasonSessionSuperseded:
		return status.Error(codes.Unauthenticated, "session superseded by a newer login")
	case admissiondomain.ReasonUnauthenticated:
		return status.Error(codes.Unauthenticated, "missing or invalid authorization")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// DecisionMetadata returns the metadata describing d: the deny reason and the rate-limit and trial details
// that apply. Internal denials carry no details.
func DecisionMetadata(d admissiondomain.Decision) metadata.MD {
	md := metadata.MD{}
	if !d.Allowed {
		if d.Reason == admissiondomain.ReasonInternal {
			return md
		}
		md.Set(TrailerDenyReason, string(d.Reason))
	}
	if d.Reason == admissiondomain.ReasonRateLimited {
		md.Set(TrailerRetryAfter, strconv.Itoa(d.RetryAfterSeconds))
		md.Set(TrailerRateLimitRemaining, strconv.Itoa(d.TokensRemaining))
	} else if d.Allowed && d.TokenDrawn {
		md.Set(TrailerRateLimitRemaining, strconv.Itoa(d.TokensRemaining))
	}
	if d.Limit > 0 {
		md.Set(TrailerTrialRemaining, strconv.Itoa(d.Remaining))
		md.Set(TrailerTrialLimit, strconv.Itoa(d.Limit))
	}
	if d.ProvisioningRequired {
		md.Set(TrailerProvisioningRequired, "true")
	}
	return md
}
