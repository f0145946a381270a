// Package identity carries the authenticated principal through a request context.
package identity

import "context"

type contextKey struct{ name string }

var principalKey = contextKey{"principal"}

// Principal is the identity asserted by a validated access token.
// Role is the raw claim value; it is parsed against the closed role set during admission.
// TenantID is empty for a principal whose tenant is still being provisioned.
type Principal struct {
	UserID    string
	SessionID string
	Role      string
	TenantID  string
}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// FromContext returns the principal from ctx and true if one was attached; otherwise a zero Principal, false.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// GetUserID returns the user id of the attached principal and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	p, ok := FromContext(ctx)
	if !ok || p.UserID == "" {
		return "", false
	}
	return p.UserID, true
}

// GetSessionID returns the session id of the attached principal and true if set; otherwise "", false.
func GetSessionID(ctx context.Context) (string, bool) {
	p, ok := FromContext(ctx)
	if !ok || p.SessionID == "" {
		return "", false
	}
	return p.SessionID, true
}
