package rbac

import (
	"log/slog"
	"net/http"

	"github.com/duriyam/operate/internal/platform/httpx"
	"github.com/duriyam/operate/internal/shared"
)

// Middleware wires RBAC gating helpers for HTTP handlers. The backend
// enforces the same rules again; this only keeps unusable routes closed.
type Middleware struct {
	Resolver  *Resolver
	Evaluator *Evaluator
	Logger    *slog.Logger
}

// RequireRole ensures the current user holds at least one of the roles.
func (m Middleware) RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := shared.UserIDFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			for _, role := range roles {
				if m.Resolver.HasRole(r.Context(), userID, role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			m.deny(r, userID)
			httpx.RespondError(w, shared.ErrForbidden)
		})
	}
}

// RequirePermission ensures the current user is granted at least one of the checks.
func (m Middleware) RequirePermission(checks ...Check) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := shared.UserIDFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			if len(checks) == 0 || m.Evaluator.HasAny(r.Context(), userID, checks...) {
				next.ServeHTTP(w, r)
				return
			}
			m.deny(r, userID)
			httpx.RespondError(w, shared.ErrForbidden)
		})
	}
}

func (m Middleware) deny(r *http.Request, userID string) {
	if m.Logger != nil {
		m.Logger.Info("rbac denied", slog.String("user_id", userID), slog.String("path", r.URL.Path))
	}
}
