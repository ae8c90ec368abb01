package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/rpattn/maintops/internal/domain"
)

// ErrForbidden is returned when the caller's role does not allow an action.
var ErrForbidden = errors.New("forbidden")

type contextKey string

const principalKey contextKey = "principal"

// Principal is the authenticated caller.
type Principal struct {
	Subject string
	Role    domain.Role
}

// Anonymous is injected when authentication is disabled for local development.
var Anonymous = Principal{Subject: "anonymous", Role: domain.RoleAdmin}

// ContextWithPrincipal returns a new context that carries the authenticated caller.
func ContextWithPrincipal(ctx context.Context, principal Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalKey, principal)
}

// PrincipalFromContext retrieves the authenticated caller from the context, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	principal, ok := ctx.Value(principalKey).(Principal)
	if !ok || principal.Subject == "" {
		return Principal{}, false
	}
	return principal, true
}

// Actor returns the caller's subject for audit columns, or "system" when the
// context carries no principal (CLI runs, tests).
func Actor(ctx context.Context) string {
	if principal, ok := PrincipalFromContext(ctx); ok {
		return principal.Subject
	}
	return "system"
}

// RequireRole ensures the caller holds one of the allowed roles. Contexts with
// no principal belong to trusted in-process callers and pass.
func RequireRole(ctx context.Context, allowed ...domain.Role) error {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil
	}
	for _, role := range allowed {
		if principal.Role == role {
			return nil
		}
	}
	return fmt.Errorf("%w: role %q may not perform this action", ErrForbidden, principal.Role)
}
