package middleware

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/kiranshivaraju/tenantcore/internal/api/response"
	"github.com/kiranshivaraju/tenantcore/internal/apperr"
	"github.com/kiranshivaraju/tenantcore/pkg/models"
)

const notAuthenticated = "User not authenticated"

// RequireRoles returns middleware that admits a request only when the
// principal's role is one of roles. An empty role set admits every request.
// The role is read from token claims only.
func RequireRoles(roles ...models.Role) func(http.Handler) http.Handler {
	required := make([]string, len(roles))
	for i, r := range roles {
		required[i] = string(r)
	}

	return func(next http.Handler) http.Handler {
		if len(roles) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := GetPrincipal(r)
			if !ok {
				response.FromError(w, r, apperr.RoleNotAuthorized(required, notAuthenticated))
				return
			}

			if !slices.Contains(roles, principal.Role) {
				slog.Warn("access denied",
					"user_role", principal.Role,
					"required_roles", required,
					"path", r.URL.Path,
				)
				response.FromError(w, r, apperr.RoleNotAuthorized(required, string(principal.Role)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
