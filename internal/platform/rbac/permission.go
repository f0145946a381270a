package rbac

import "fmt"

// Permission is a single capability granted by a role.
type Permission uint8

const (
	PermMatterRead Permission = iota
	PermMatterWrite
	PermMatterDelete
	PermDocumentRead
	PermDocumentWrite
	PermDocumentDelete
	PermDocumentGenerate
	PermContractReview
	PermLegalResearch
	PermContactRead
	PermContactWrite
	PermContactDelete
	PermInvoiceRead
	PermInvoiceWrite
	PermInvoiceDelete
	PermMemberRead
	PermMemberWrite
	PermMemberDelete
	PermTenantManage
	PermAuditRead

	numPermissions
)

// PermissionSet must fit every permission in one word.
var _ [64 - int(numPermissions)]struct{}

var permissionNames = [numPermissions]string{
	PermMatterRead:       "matter:read",
	PermMatterWrite:      "matter:write",
	PermMatterDelete:     "matter:delete",
	PermDocumentRead:     "document:read",
	PermDocumentWrite:    "document:write",
	PermDocumentDelete:   "document:delete",
	PermDocumentGenerate: "document:generate",
	PermContractReview:   "contract:review",
	PermLegalResearch:    "research:run",
	PermContactRead:      "contact:read",
	PermContactWrite:     "contact:write",
	PermContactDelete:    "contact:delete",
	PermInvoiceRead:      "invoice:read",
	PermInvoiceWrite:     "invoice:write",
	PermInvoiceDelete:    "invoice:delete",
	PermMemberRead:       "member:read",
	PermMemberWrite:      "member:write",
	PermMemberDelete:     "member:delete",
	PermTenantManage:     "tenant:manage",
	PermAuditRead:        "audit:read",
}

func (p Permission) String() string {
	if p >= numPermissions {
		return fmt.Sprintf("Permission(%d)", uint8(p))
	}
	return permissionNames[p]
}

// PermissionSet is a bitset of permissions.
type PermissionSet uint64

// NewPermissionSet returns the set containing perms.
func NewPermissionSet(perms ...Permission) PermissionSet {
	var s PermissionSet
	for _, p := range perms {
		s |= 1 << p
	}
	return s
}

func allPermissions() PermissionSet {
	return PermissionSet(1)<<numPermissions - 1
}

// Has reports whether p is in the set.
func (s PermissionSet) Has(p Permission) bool {
	return p < numPermissions && s&(1<<p) != 0
}

// Without returns the set minus perms.
func (s PermissionSet) Without(perms ...Permission) PermissionSet {
	return s &^ NewPermissionSet(perms...)
}

// List returns the permissions in the set in declaration order.
func (s PermissionSet) List() []Permission {
	var out []Permission
	for p := Permission(0); p < numPermissions; p++ {
		if s.Has(p) {
			out = append(out, p)
		}
	}
	return out
}
