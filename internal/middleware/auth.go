package middleware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/rpattn/maintops/internal/auth"
	"github.com/rpattn/maintops/internal/domain"
	"github.com/rpattn/maintops/internal/httpapi"
	"github.com/rpattn/maintops/internal/repository"
)

// RoleLookup reads the role stored for a user in user_roles.
type RoleLookup interface {
	GetRole(ctx context.Context, id uuid.UUID) (domain.Role, error)
}

// AuthOptions configures AuthMiddleware.
type AuthOptions struct {
	// Disabled injects auth.Anonymous instead of checking tokens.
	Disabled bool
	// PublicPrefixes bypass authentication, e.g. /metrics and signed /files/ URLs.
	PublicPrefixes []string
	// Roles, when set, overrides the token's role claim with the user_roles
	// row of the subject. Subjects without a row keep the claim.
	Roles RoleLookup
}

// AuthMiddleware verifies the bearer token and stores the caller in the
// request context.
func AuthMiddleware(verifier *auth.TokenVerifier, opts AuthOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.Disabled {
				next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), auth.Anonymous)))
				return
			}
			for _, prefix := range opts.PublicPrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := verifier.Verify(r.Header.Get("Authorization"))
			if err != nil {
				httpapi.WriteError(w, err)
				return
			}
			if opts.Roles != nil {
				if principal, err = resolveRole(r.Context(), opts.Roles, principal); err != nil {
					log.Printf("[HTTP] %v", err)
					httpapi.WriteError(w, err)
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

func resolveRole(ctx context.Context, roles RoleLookup, principal auth.Principal) (auth.Principal, error) {
	id, err := uuid.Parse(principal.Subject)
	if err != nil {
		return principal, nil
	}
	stored, err := roles.GetRole(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return principal, nil
	case err != nil:
		return auth.Principal{}, fmt.Errorf("failed to resolve role for %s: %w", id, err)
	}
	role, err := domain.ParseRole(string(stored))
	if err != nil {
		role = domain.RoleReader
	}
	principal.Role = role
	return principal, nil
}

// Chain applies middlewares so the first one listed runs outermost.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
