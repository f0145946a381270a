package rbac

import (
	"fmt"

	admissiondomain "lexgate/backend/internal/admission/domain"
)

// ResourceKind is the type of a tenant-owned record.
type ResourceKind uint8

const (
	KindMatter ResourceKind = iota
	KindDocument
	KindContact
	KindInvoice
	KindMember

	numKinds
)

var kindNames = [numKinds]string{
	KindMatter:   "matter",
	KindDocument: "document",
	KindContact:  "contact",
	KindInvoice:  "invoice",
	KindMember:   "member",
}

func (k ResourceKind) String() string {
	if k >= numKinds {
		return fmt.Sprintf("ResourceKind(%d)", uint8(k))
	}
	return kindNames[k]
}

// AccessMode is what the caller intends to do with a resource.
type AccessMode uint8

const (
	ModeRead AccessMode = iota
	ModeWrite
	ModeDelete

	numModes
)

func (m AccessMode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	case ModeDelete:
		return "delete"
	default:
		return fmt.Sprintf("AccessMode(%d)", uint8(m))
	}
}

var modePermissions = [numKinds][numModes]Permission{
	KindMatter:   {PermMatterRead, PermMatterWrite, PermMatterDelete},
	KindDocument: {PermDocumentRead, PermDocumentWrite, PermDocumentDelete},
	KindContact:  {PermContactRead, PermContactWrite, PermContactDelete},
	KindInvoice:  {PermInvoiceRead, PermInvoiceWrite, PermInvoiceDelete},
	KindMember:   {PermMemberRead, PermMemberWrite, PermMemberDelete},
}

// Resource identifies a stored record and the tenant that owns it.
type Resource struct {
	Kind     ResourceKind
	ID       string
	TenantID string
}

// ResourceScoped is implemented by request messages that target one stored record.
type ResourceScoped interface {
	TargetResource() Resource
}

// PermissionFor returns the permission required to access a resource of kind in mode.
func PermissionFor(kind ResourceKind, mode AccessMode) (Permission, bool) {
	if kind >= numKinds || mode >= numModes {
		return 0, false
	}
	return modePermissions[kind][mode], true
}

// CanAccessResource reports whether user may access r in mode: the role must grant the kind/mode permission
// and r must belong to the user's tenant, unless the role bypasses tenant isolation. Unknown roles and users
// without a tenant never have access.
func CanAccessResource(user admissiondomain.User, r Resource, mode AccessMode) bool {
	role, err := ParseRole(user.Role)
	if err != nil {
		return false
	}
	perm, ok := PermissionFor(r.Kind, mode)
	if !ok || !HasPermission(role, perm) {
		return false
	}
	if BypassesTenant(role) {
		return true
	}
	return user.TenantID != "" && r.TenantID == user.TenantID
}
