package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/tenantcore/internal/api/response"
	"github.com/kiranshivaraju/tenantcore/internal/apperr"
	"github.com/kiranshivaraju/tenantcore/pkg/models"
)

// TenantHeader conveys the tenant slug on routes without a {slug} parameter.
const TenantHeader = "X-Tenant"

// TenantLookup finds a live tenant by normalized slug. It returns (nil, nil)
// when no tenant matches.
type TenantLookup interface {
	FindBySlug(ctx context.Context, slug string) (*models.Tenant, error)
}

// ResolveTenant reads the tenant slug from the {slug} route parameter, falling
// back to the X-Tenant header, and stores the matching tenant in the request
// context. It fails closed: a missing slug is a bad request and an unknown
// or deleted tenant is not found.
func ResolveTenant(lookup TenantLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slug := chi.URLParam(r, "slug")
			if slug == "" {
				slug = r.Header.Get(TenantHeader)
			}
			slug = models.NormalizeSlug(slug)
			if slug == "" {
				response.FromError(w, r, apperr.BadRequest("Tenant not informed"))
				return
			}

			tenant, err := lookup.FindBySlug(r.Context(), slug)
			if err != nil {
				response.FromError(w, r, err)
				return
			}
			if tenant == nil {
				response.FromError(w, r, apperr.NotFound("Tenant not found"))
				return
			}

			next.ServeHTTP(w, r.WithContext(SetTenant(r.Context(), tenant)))
		})
	}
}
