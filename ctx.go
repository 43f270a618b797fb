package todoapi

import (
	"context"
	"time"
)

var identityCtxKey = &contextKey{"identity"}
var claimsCtxKey = &contextKey{"claims"}
var requestCtxKey = &contextKey{"request"}

type contextKey struct {
	name string
}

// Locals keys shared between the middleware and the controllers
const (
	// LocalIdentityKey is where the route protection middleware
	// stores validated claims
	LocalIdentityKey = "identity"
	// LocalRequestID is where the request observer stores the
	// generated request id
	LocalRequestID = "request_id"
)

// RequestContext carries the per-request attributes the observer
// stamps on the context for downstream log correlation.
type RequestContext struct {
	ID        string
	Method    string
	Path      string
	ClientIP  string
	StartedAt time.Time
}

// WithIdentity sets the Identity in the given context
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

// IdentityFromContext finds the identity from the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	raw, ok := ctx.Value(identityCtxKey).(Identity)
	return raw, ok
}

// WithClaims sets the AuthClaims in the given context
func WithClaims(ctx context.Context, claims AuthClaims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// ClaimsFromContext extracts the AuthClaims from the context
func ClaimsFromContext(ctx context.Context) (AuthClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(AuthClaims)
	return raw, ok
}

// WithRequestContext sets the RequestContext in the given context
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestCtxKey, rc)
}

// RequestContextFromContext extracts the RequestContext
func RequestContextFromContext(ctx context.Context) (RequestContext, bool) {
	raw, ok := ctx.Value(requestCtxKey).(RequestContext)
	return raw, ok
}
