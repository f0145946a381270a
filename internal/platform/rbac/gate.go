package rbac

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/metadata"

	admissiondomain "lexgate/backend/internal/admission/domain"
	"lexgate/backend/internal/identity"
)

// TenantHeader is the metadata key a tenant-bypassing role uses to act inside another tenant.
const TenantHeader = "x-tenant-id"

var (
	// ErrNoIdentity means an authenticated path was reached without a principal in context.
	ErrNoIdentity = errors.New("rbac: no identity in context")
	// ErrUnauthenticated means the attached principal lacks a user or session id.
	ErrUnauthenticated = errors.New("rbac: principal not authenticated")
	// ErrPendingProvisioning means the user has no tenant yet.
	ErrPendingProvisioning = errors.New("rbac: tenant pending provisioning")
	// ErrTenantMismatch means a non-bypassing role asked to act in a tenant other than its own.
	ErrTenantMismatch = errors.New("rbac: tenant mismatch")
)

// ResolveContext derives the acting tenant context from the principal in ctx.
//
// A tenant-bypassing role may name another tenant through TenantHeader; any other role naming a tenant other
// than its own gets ErrTenantMismatch. A non-bypassing principal with no tenant gets ErrPendingProvisioning
// together with a populated context so callers can route it to provisioning, whatever tenant it names. Unknown roles are rejected with ErrUnknownRole.
func ResolveContext(ctx context.Context) (admissiondomain.TenantContext, error) {
	p, ok := identity.FromContext(ctx)
	if !ok {
		return admissiondomain.TenantContext{}, ErrNoIdentity
	}
	if p.UserID == "" || p.SessionID == "" {
		return admissiondomain.TenantContext{}, ErrUnauthenticated
	}
	tc := admissiondomain.TenantContext{
		User:      admissiondomain.User{ID: p.UserID, Role: p.Role, TenantID: p.TenantID},
		TenantID:  p.TenantID,
		SessionID: p.SessionID,
	}
	role, err := ParseRole(p.Role)
	if err != nil {
		return tc, err
	}

	override := tenantOverride(ctx)
	foreign := override != "" && override != p.TenantID
	if foreign && BypassesTenant(role) {
		tc.TenantID = override
		return tc, nil
	}
	if p.TenantID == "" {
		return tc, ErrPendingProvisioning
	}
	if foreign {
		return tc, ErrTenantMismatch
	}
	return tc, nil
}

func tenantOverride(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get(TenantHeader)
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}

// Authorize decides whether tc may exercise perm and, when target is non-nil, access target in mode.
// Requests without a target are scoped to the acting tenant and only perm is checked.
func Authorize(tc admissiondomain.TenantContext, perm Permission, target *Resource, mode AccessMode) admissiondomain.Decision {
	role, err := ParseRole(tc.User.Role)
	if err != nil || !HasPermission(role, perm) {
		return admissiondomain.Deny(admissiondomain.ReasonForbidden)
	}
	if target == nil {
		return admissiondomain.Allow()
	}
	if !CanAccessResource(tc.User, *target, mode) {
		return admissiondomain.Deny(admissiondomain.ReasonForbidden)
	}
	return admissiondomain.Allow()
}
