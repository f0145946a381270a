package domain

// User is the authenticated principal as asserted by the identity provider.
type User struct {
	ID   string
	Role string
	// TenantID is empty while the user is pending provisioning.
	TenantID string
}

// TenantContext is the acting identity for one request. TenantID is the tenant the request acts in,
// which differs from User.TenantID only for tenant-bypassing roles.
type TenantContext struct {
	User      User
	TenantID  string
	SessionID string
}
