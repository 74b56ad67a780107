package middleware

import (
	"context"
	"errors"
	"net/http"

	officeauth "github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002"
)

// IdentityResolver is the part of [officeauth.Engine] used by [Authenticate].
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, rc *officeauth.RequestContext) *officeauth.Identity
}

// RoleAuthorizer is the part of [officeauth.Engine] used by [RequireRole].
type RoleAuthorizer interface {
	Authorize(ctx context.Context, id *officeauth.Identity, roles ...officeauth.Role) error
}

// Authenticate resolves the caller and attaches the identity to the request
// context. Anonymous requests pass through unchanged.
func Authenticate(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolver == nil {
				next.ServeHTTP(w, r)
				return
			}

			id := resolver.ResolveIdentity(r.Context(), officeauth.NewRequestContext(r))
			if id == nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(officeauth.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireIdentity rejects requests that [Authenticate] left anonymous.
func RequireIdentity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := officeauth.IdentityFromContext(r.Context()); !ok {
				WriteError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole admits identities whose role is in roles. A nil authorizer
// falls back to [officeauth.Authorize].
func RequireRole(authz RoleAuthorizer, roles ...officeauth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := officeauth.IdentityFromContext(r.Context())

			var err error
			if authz != nil {
				err = authz.Authorize(r.Context(), id, roles...)
			} else {
				err = officeauth.Authorize(id, roles...)
			}

			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, officeauth.ErrUnauthenticated):
				WriteError(w, http.StatusUnauthorized, "Unauthorized")
			default:
				WriteError(w, http.StatusForbidden, "Forbidden")
			}
		})
	}
}
