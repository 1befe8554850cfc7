package authclient

import "context"

var identityCtxKey = &contextKey{"identity"}

type contextKey struct {
	name string
}

// WithIdentity sets the Identity in the given context
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity.Clone())
}

// IdentityFromContext finds the identity from the context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	raw, ok := ctx.Value(identityCtxKey).(*Identity)
	if !ok || raw == nil {
		return nil, false
	}
	return raw, true
}
