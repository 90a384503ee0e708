package domain

import "context"

type principalKey struct{}

// WithPrincipal stores the resolved caller identity in the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the caller identity from the context.
// Requests that never passed the auth middleware yield Anonymous.
func PrincipalFromContext(ctx context.Context) Principal {
	if p, ok := ctx.Value(principalKey{}).(Principal); ok {
		return p
	}
	return Anonymous{}
}

// PrincipalName returns a stable display name for audit records.
func PrincipalName(p Principal) string {
	switch v := p.(type) {
	case Admin:
		return v.Username
	case *User:
		return v.Username
	case *Token:
		return "token:" + v.ID
	default:
		return "anonymous"
	}
}
