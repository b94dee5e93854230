package rbac

import "context"

// Principal describes the authenticated actor as supplied by the identity
// layer. The engine reads its Role and never modifies it.
type Principal struct {
	ID       string
	Email    string
	Role     Role
	TenantID string
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context. It returns nil
// for anonymous requests.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
