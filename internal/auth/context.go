package auth

import (
	"context"
	"fmt"
)

// UserContext carries the identity extracted from a validated inbound
// bearer token. It lives for a single request: the middleware creates
// it, the outbound transport consumes it, nothing caches it.
type UserContext struct {
	// Email is the preferred_username claim, falling back to email.
	Email string

	// TenantID is the tid claim.
	TenantID string

	// ObjectID is the oid claim.
	ObjectID string

	// Token is the raw inbound bearer token, kept so outbound API calls
	// for this request can present the same credential.
	Token string
}

// String redacts the token. UserContext values end up in log lines and
// error messages; the raw credential must never travel with them.
func (u *UserContext) String() string {
	return fmt.Sprintf("UserContext(email=%s, tenant_id=%s, object_id=%s)", u.Email, u.TenantID, u.ObjectID)
}

// GoString redacts the token for %#v formatting as well.
func (u *UserContext) GoString() string {
	return u.String()
}

type userContextKey struct{}

// WithUserContext returns a context carrying the validated user.
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext extracts the validated user from the context, if the
// request passed through the auth middleware.
func UserFromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey{}).(*UserContext)
	return user, ok && user != nil
}
