package rbac

import (
	"testing"

	admissiondomain "lexgate/backend/internal/admission/domain"
)

func TestCanAccessResource_SameTenant(t *testing.T) {
	user := admissiondomain.User{ID: "u1", Role: "attorney", TenantID: "firm-1"}
	doc := Resource{Kind: KindDocument, ID: "d1", TenantID: "firm-1"}
	if !CanAccessResource(user, doc, ModeRead) {
		t.Error("attorney cannot read own tenant's document")
	}
	if !CanAccessResource(user, doc, ModeDelete) {
		t.Error("attorney cannot delete own tenant's document")
	}
	client := admissiondomain.User{ID: "u2", Role: "client", TenantID: "firm-1"}
	if CanAccessResource(client, doc, ModeWrite) {
		t.Error("client can write a document")
	}
}

func TestCanAccessResource_CrossTenantDeniedForNonBypassRoles(t *testing.T) {
	tenants := []string{"firm-1", "firm-2", ""}
	kinds := []ResourceKind{KindMatter, KindDocument, KindContact, KindInvoice, KindMember}
	for _, r := range Roles() {
		if BypassesTenant(r) {
			continue
		}
		for _, ut := range tenants {
			for _, rt := range tenants {
				if ut == rt {
					continue
				}
				for _, k := range kinds {
					user := admissiondomain.User{ID: "u", Role: r.String(), TenantID: ut}
					res := Resource{Kind: k, ID: "x", TenantID: rt}
					if CanAccessResource(user, res, ModeRead) {
						t.Errorf("%v in %q read %v in %q", r, ut, k, rt)
					}
				}
			}
		}
	}
}

func TestCanAccessResource_BypassRole(t *testing.T) {
	admin := admissiondomain.User{ID: "ops", Role: "platform_admin", TenantID: "platform"}
	res := Resource{Kind: KindInvoice, ID: "i1", TenantID: "firm-9"}
	if !CanAccessResource(admin, res, ModeDelete) {
		t.Error("platform admin denied cross-tenant access")
	}
}

func TestCanAccessResource_UnknownRoleOrKind(t *testing.T) {
	user := admissiondomain.User{ID: "u", Role: "superuser", TenantID: "firm-1"}
	if CanAccessResource(user, Resource{Kind: KindMatter, TenantID: "firm-1"}, ModeRead) {
		t.Error("unknown role granted access")
	}
	user.Role = "tenant_admin"
	if CanAccessResource(user, Resource{Kind: numKinds, TenantID: "firm-1"}, ModeRead) {
		t.Error("unknown kind granted access")
	}
	if CanAccessResource(user, Resource{Kind: KindMatter, TenantID: "firm-1"}, numModes) {
		t.Error("unknown mode granted access")
	}
}

func TestPermissionFor(t *testing.T) {
	if p, ok := PermissionFor(KindContact, ModeWrite); !ok || p != PermContactWrite {
		t.Errorf("PermissionFor(contact, write) = %v, %v", p, ok)
	}
	if _, ok := PermissionFor(numKinds, ModeRead); ok {
		t.Error("PermissionFor accepted unknown kind")
	}
}
