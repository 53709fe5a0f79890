// Package route describes HTTP endpoints together with the roles allowed to
// call them, so that authorization is declared next to the path it guards.
package route

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/tenantcore/internal/api/middleware"
	"github.com/kiranshivaraju/tenantcore/pkg/models"
)

type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
	// Roles lists who may call the route. Empty means any authenticated caller.
	Roles []models.Role
}

// Mount registers routes on r, each behind its role guard.
func Mount(r chi.Router, routes []Route) {
	for _, rt := range routes {
		r.With(middleware.RequireRoles(rt.Roles...)).Method(rt.Method, rt.Pattern, rt.Handler)
	}
}
