package httpx

import (
	"context"
	"net/http"
	"slices"

	"github.com/aussiebroadwan/accounts/pkg/slogx"
)

// RoleLookup resolves the current role of a session subject. Roles are
// looked up per request; session tokens do not carry them.
type RoleLookup func(ctx context.Context, subject string) (string, error)

// RequireRole lets the request through only when the subject's current role
// is one of roles. It must run after AuthnMiddleware.
func RequireRole(lookup RoleLookup, roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, ok := SubjectFromContext(r.Context())
			if !ok {
				writeBearerError(w, r, "missing bearer token")
				return
			}

			role, err := lookup(r.Context(), subject)
			if err != nil {
				slogx.FromContext(r.Context()).Debug("role lookup failed", "subject", subject, "err", err)
				WriteError(w, r, http.StatusForbidden, "Access denied")
				return
			}
			if !slices.Contains(roles, role) {
				w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope"`)
				WriteError(w, r, http.StatusForbidden, "Access denied")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
