// Package rbac holds the static role → permission matrix and the tenant-scoped permission gate.
//
// Roles and permissions are closed enumerations. The matrix is an array indexed by Role whose type is pinned
// to [numRoles], so adding a role without a matrix row does not compile.
package rbac

import (
	"errors"
	"fmt"
	"strings"
)

// Role is a principal's role within its tenant.
type Role uint8

const (
	// RolePlatformAdmin operates the platform and may act in any tenant.
	RolePlatformAdmin Role = iota
	// RoleTenantAdmin administers one law firm: members, billing, settings.
	RoleTenantAdmin
	RoleAttorney
	RoleParalegal
	// RoleClient is an external client of the firm with read access to shared records.
	RoleClient

	numRoles
)

// ErrUnknownRole is returned for a role string outside the closed role set.
var ErrUnknownRole = errors.New("rbac: unknown role")

var roleNames = [numRoles]string{
	RolePlatformAdmin: "platform_admin",
	RoleTenantAdmin:   "tenant_admin",
	RoleAttorney:      "attorney",
	RoleParalegal:     "paralegal",
	RoleClient:        "client",
}

// Roles returns every role in declaration order.
func Roles() []Role {
	out := make([]Role, numRoles)
	for i := range out {
		out[i] = Role(i)
	}
	return out
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	return r < numRoles
}

func (r Role) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
	return roleNames[r]
}

// ParseRole maps a role claim to a Role. Matching is case-insensitive.
func ParseRole(s string) (Role, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range roleNames {
		if n == name {
			return Role(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}
