package user

import "context"

type ctxKey struct{}

// ContextWith attaches the authenticated user to the request context. The
// auth middleware calls this once per request after validating the token.
func ContextWith(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns the authenticated user attached by the auth middleware.
func FromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*User)
	return u, ok
}
