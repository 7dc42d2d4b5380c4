package auth

import "context"

type principalContextKey struct{}
type tenantContextKey struct{}

// ContextWithPrincipal attaches the authenticated principal to the context.
func ContextWithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, &principal)
}

// PrincipalFromContext extracts the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	v, ok := ctx.Value(principalContextKey{}).(*Principal)
	if !ok || v == nil {
		return Principal{}, false
	}
	return *v, true
}

// ContextWithTenant publishes the resolved tenant identifier for all
// downstream stages. Every tenant-owned query filters by this value.
func ContextWithTenant(ctx context.Context, tenantID string) context.Context {
	if tenantID == "" {
		return ctx
	}
	return context.WithValue(ctx, tenantContextKey{}, tenantID)
}

// TenantFromContext returns the tenant identifier resolved for this request.
func TenantFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(tenantContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// ResolveTenant derives the tenant scope from the principal already attached
// to the context. Pure function of the principal; no database access.
func ResolveTenant(ctx context.Context) (context.Context, error) {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return ctx, ErrUnauthenticated
	}
	if principal.TenantID == "" {
		return ctx, ErrNoTenant
	}
	return ContextWithTenant(ctx, principal.TenantID), nil
}
