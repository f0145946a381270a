package rbac

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	admissiondomain "lexgate/backend/internal/admission/domain"
)

// RequirePermission resolves the tenant context and ensures its role grants perm.
// Handlers that authorize on their own use it to get the acting tenant. Returns a gRPC error
// (Internal, Unauthenticated or PermissionDenied) on failure.
func RequirePermission(ctx context.Context, perm Permission) (admissiondomain.TenantContext, error) {
	tc, err := ResolveContext(ctx)
	if err != nil {
		return admissiondomain.TenantContext{}, StatusFromResolveError(err)
	}
	if d := Authorize(tc, perm, nil, ModeRead); !d.Allowed {
		return admissiondomain.TenantContext{}, status.Error(codes.PermissionDenied, "permission "+perm.String()+" required")
	}
	return tc, nil
}

// RequireResourceAccess is RequirePermission for a request targeting one record.
func RequireResourceAccess(ctx context.Context, target Resource, mode AccessMode) (admissiondomain.TenantContext, error) {
	tc, err := ResolveContext(ctx)
	if err != nil {
		return admissiondomain.TenantContext{}, StatusFromResolveError(err)
	}
	perm, ok := PermissionFor(target.Kind, mode)
	if !ok {
		return admissiondomain.TenantContext{}, status.Error(codes.Internal, "unknown resource kind")
	}
	if d := Authorize(tc, perm, &target, mode); !d.Allowed {
		return admissiondomain.TenantContext{}, status.Error(codes.PermissionDenied, "access to "+target.Kind.String()+" denied")
	}
	return tc, nil
}

// StatusFromResolveError maps a ResolveContext error to a gRPC status error.
func StatusFromResolveError(err error) error {
	switch {
	case errors.Is(err, ErrNoIdentity):
		return status.Error(codes.Internal, "identity not resolved")
	case errors.Is(err, ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, "user and session context required")
	case errors.Is(err, ErrPendingProvisioning):
		return status.Error(codes.PermissionDenied, "tenant pending provisioning")
	case errors.Is(err, ErrTenantMismatch):
		return status.Error(codes.PermissionDenied, "not a member of this tenant")
	case errors.Is(err, ErrUnknownRole):
		return status.Error(codes.PermissionDenied, "unknown role")
	default:
		return status.Error(codes.Internal, "failed to resolve tenant")
	}
}
