package rbac

// MatrixVersion identifies the permission matrix shipped with this build. It changes whenever a row changes.
const MatrixVersion = "2024.2"

var matrix = [...]PermissionSet{
	RolePlatformAdmin: allPermissions(),
	RoleTenantAdmin:   allPermissions(),
	RoleAttorney: allPermissions().Without(
		PermMemberWrite, PermMemberDelete, PermTenantManage, PermAuditRead, PermInvoiceDelete,
	),
	RoleParalegal: NewPermissionSet(
		PermMatterRead, PermMatterWrite,
		PermDocumentRead, PermDocumentWrite, PermDocumentGenerate,
		PermLegalResearch,
		PermContactRead, PermContactWrite,
		PermInvoiceRead,
		PermMemberRead,
	),
	RoleClient: NewPermissionSet(PermMatterRead, PermDocumentRead, PermInvoiceRead),
}

// Every role has a row.
var _ [numRoles]PermissionSet = matrix

var tenantBypass = [numRoles]bool{
	RolePlatformAdmin: true,
}

// HasPermission reports whether role grants p. It is a pure lookup.
func HasPermission(role Role, p Permission) bool {
	if !role.Valid() {
		return false
	}
	return matrix[role].Has(p)
}

// Permissions returns the full permission set of role.
func Permissions(role Role) PermissionSet {
	if !role.Valid() {
		return 0
	}
	return matrix[role]
}

// BypassesTenant reports whether role may act on resources owned by other tenants.
func BypassesTenant(role Role) bool {
	return role.Valid() && tenantBypass[role]
}
