package auth

import (
	"log/slog"
	"net/http"

	"github.com/expenseflow/expense-approval/internal"
)

// RoleGuard is chi middleware enforcing role membership on route groups.
// It runs after AuthMiddleware and consults the actor's resolved role set.
type RoleGuard struct {
	logger *slog.Logger
}

func NewRoleGuard(logger *slog.Logger) *RoleGuard {
	return &RoleGuard{logger: logger}
}

// RequireAnyRole rejects with 403 unless the actor holds at least one of the
// given roles. An empty role set (resolution failure) always fails here.
func (g *RoleGuard) RequireAnyRole(roles ...internal.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := internal.ActorFromContext(r.Context())
			if !ok {
				g.logger.Warn("role check failed: actor not found in context")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !actor.HasAnyRole(roles...) {
				g.logger.Warn("access denied: missing required role",
					"user_id", actor.ID,
					"required_roles", roles,
					"actor_roles", actor.Roles)
				http.Error(w, "Forbidden: insufficient role", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (g *RoleGuard) RequireRole(role internal.Role) func(http.Handler) http.Handler {
	return g.RequireAnyRole(role)
}
