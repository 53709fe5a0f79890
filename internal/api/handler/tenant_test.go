package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/tenantcore/internal/api/handler"
	"github.com/kiranshivaraju/tenantcore/internal/api/middleware"
	"github.com/kiranshivaraju/tenantcore/internal/api/route"
	"github.com/kiranshivaraju/tenantcore/internal/cache"
	"github.com/kiranshivaraju/tenantcore/internal/tenant"
	"github.com/kiranshivaraju/tenantcore/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTenantRouter mounts the tenant routes under /tenants. Admin routes see
// a principal with role.
func newTenantRouter(role models.Role) (http.Handler, *memTenants) {
	st := newMemTenants()
	svc := tenant.NewService(st, cache.NewMemoryCache(time.Minute), time.Minute, nil)
	h := handler.NewTenantHandler(svc)

	r := chi.NewRouter()
	r.Route("/tenants", func(r chi.Router) {
		route.Mount(r, h.PublicRoutes())
		r.Group(func(r chi.Router) {
			r.Use(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
					ctx := middleware.SetPrincipal(req.Context(), &models.Principal{Subject: "u1", Role: role})
					next.ServeHTTP(w, req.WithContext(ctx))
				})
			})
			route.Mount(r, h.AdminRoutes())
		})
	})
	return r, st
}

func createTenant(t *testing.T, h http.Handler, name, slug string) models.Tenant {
	t.Helper()
	rec := request(t, h, http.MethodPost, "/tenants", `{"name":"`+name+`","slug":"`+slug+`"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out models.Tenant
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &out))
	return out
}

func TestTenant_CreateThenFindBySlug(t *testing.T) {
	h, _ := newTenantRouter(models.RoleAdmin)
	created := createTenant(t, h, "Acme", "acme")
	assert.Equal(t, "acme", created.Slug)

	rec := request(t, h, http.MethodGet, "/tenants/acme", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Tenant
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &got))
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Acme", got.Name)
}

func TestTenant_FindUnknownSlugIsEmptyObject(t *testing.T) {
	h, _ := newTenantRouter(models.RoleAdmin)

	rec := request(t, h, http.MethodGet, "/tenants/nobody-here", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, string(decodeEnvelope(t, rec).Data))
}

func TestTenant_FindByID(t *testing.T) {
	h, _ := newTenantRouter(models.RoleAdmin)
	created := createTenant(t, h, "Acme", "acme")

	rec := request(t, h, http.MethodGet, "/tenants/"+created.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = request(t, h, http.MethodGet, "/tenants/00000000-0000-0000-0000-000000000001", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTenant_FindNormalizesSlug(t *testing.T) {
	h, _ := newTenantRouter(models.RoleAdmin)
	createTenant(t, h, "Acme", "acme")

	rec := request(t, h, http.MethodGet, "/tenants/ACME", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"slug":"acme"`)
}

func TestTenant_CreateValidation(t *testing.T) {
	h, _ := newTenantRouter(models.RoleAdmin)

	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"bad json", `{`, "Invalid JSON body"},
		{"missing name", `{"slug":"acme"}`, "name is required"},
		{"short slug", `{"name":"A","slug":"ab"}`, "slug must be at least 3 characters"},
		{"bad chars", `{"name":"A","slug":"ac_me"}`, "Slug must contain only lowercase letters, numbers and hyphens"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := request(t, h, http.MethodPost, "/tenants", tt.body, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.msg, decodeEnvelope(t, rec).Error.Message)
		})
	}
}

func TestTenant_CreateDuplicateSlug(t *testing.T) {
	h, _ := newTenantRouter(models.RoleAdmin)
	createTenant(t, h, "Acme", "acme")

	rec := request(t, h, http.MethodPost, "/tenants", `{"name":"Other","slug":"acme"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Slug already in use", decodeEnvelope(t, rec).Error.Message)
}

func TestTenant_ValidateSlug(t *testing.T) {
	h, _ := newTenantRouter(models.RoleAdmin)
	createTenant(t, h, "Acme", "acme")

	rec := request(t, h, http.MethodGet, "/tenants/validate-slug?slug=acme", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"available":false}`, string(decodeEnvelope(t, rec).Data))

	rec = request(t, h, http.MethodGet, "/tenants/validate-slug?slug=globex", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"available":true}`, string(decodeEnvelope(t, rec).Data))

	rec = request(t, h, http.MethodGet, "/tenants/validate-slug", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTenant_UpdateAndRemove(t *testing.T) {
	h, _ := newTenantRouter(models.RoleAdmin)
	created := createTenant(t, h, "Acme", "acme")
	path := "/tenants/" + created.ID.String()

	rec := request(t, h, http.MethodPatch, path, `{"slug":"acme-corp"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = request(t, h, http.MethodGet, "/tenants/acme", "", nil)
	assert.JSONEq(t, `{}`, string(decodeEnvelope(t, rec).Data), "old slug must be evicted")

	rec = request(t, h, http.MethodDelete, path, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"slug":"acme-corp"`)

	rec = request(t, h, http.MethodGet, "/tenants/acme-corp", "", nil)
	assert.JSONEq(t, `{}`, string(decodeEnvelope(t, rec).Data))
	rec = request(t, h, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTenant_UpdateBadID(t *testing.T) {
	h, _ := newTenantRouter(models.RoleAdmin)

	rec := request(t, h, http.MethodPatch, "/tenants/acme", `{"name":"x"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid id", decodeEnvelope(t, rec).Error.Message)
}

func TestTenant_AdminRoutesRequireAdmin(t *testing.T) {
	h, _ := newTenantRouter(models.RoleStaff)
	created := createTenant(t, h, "Acme", "acme")

	rec := request(t, h, http.MethodDelete, "/tenants/"+created.ID.String(), "", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "ROLE_NOT_AUTHORIZED", decodeEnvelope(t, rec).Error.Code)
}
