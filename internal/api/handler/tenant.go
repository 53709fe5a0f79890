package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/tenantcore/internal/api/response"
	"github.com/kiranshivaraju/tenantcore/internal/api/route"
	"github.com/kiranshivaraju/tenantcore/internal/apperr"
	"github.com/kiranshivaraju/tenantcore/internal/tenant"
	"github.com/kiranshivaraju/tenantcore/pkg/models"
)

// TenantService defines the interface the tenant handler depends on.
type TenantService interface {
	Create(ctx context.Context, in models.CreateTenantInput) (*models.Tenant, error)
	ValidateSlug(ctx context.Context, slug string) (tenant.SlugAvailability, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	Update(ctx context.Context, id uuid.UUID, in models.UpdateTenantInput) (*models.Tenant, error)
	Remove(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

// TenantHandler serves /api/v1/tenants.
type TenantHandler struct {
	svc TenantService
}

func NewTenantHandler(svc TenantService) *TenantHandler {
	return &TenantHandler{svc: svc}
}

// PublicRoutes are reachable without a token: slug checks, lookups and
// registration.
func (h *TenantHandler) PublicRoutes() []route.Route {
	return []route.Route{
		{Method: http.MethodGet, Pattern: "/validate-slug", Handler: h.ValidateSlug},
		{Method: http.MethodGet, Pattern: "/{ref}", Handler: h.Find},
		{Method: http.MethodPost, Pattern: "/", Handler: h.Create},
	}
}

// AdminRoutes modify existing tenants and must be mounted behind Authenticate.
func (h *TenantHandler) AdminRoutes() []route.Route {
	admin := []models.Role{models.RoleAdmin}
	return []route.Route{
		{Method: http.MethodPatch, Pattern: "/{ref}", Handler: h.Update, Roles: admin},
		{Method: http.MethodDelete, Pattern: "/{ref}", Handler: h.Remove, Roles: admin},
	}
}

func (h *TenantHandler) ValidateSlug(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ValidateSlug(r.Context(), r.URL.Query().Get("slug"))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, res)
}

// Find looks a tenant up by id when ref is a UUID and by slug otherwise.
// An unknown slug answers 200 with an empty object; an unknown id is 404.
func (h *TenantHandler) Find(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")

	if id, err := uuid.Parse(ref); err == nil {
		t, err := h.svc.FindByID(r.Context(), id)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		response.JSON(w, t)
		return
	}

	t, err := h.svc.FindBySlug(r.Context(), ref)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	if t == nil {
		response.JSON(w, struct{}{})
		return
	}
	response.JSON(w, t)
}

func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.CreateTenantInput
	if !decodeValid(w, r, &in) {
		return
	}
	in.Slug = models.NormalizeSlug(in.Slug)

	t, err := h.svc.Create(r.Context(), in)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Created(w, t)
}

func (h *TenantHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := tenantID(w, r)
	if !ok {
		return
	}
	var in models.UpdateTenantInput
	if !decodeValid(w, r, &in) {
		return
	}

	t, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, t)
}

func (h *TenantHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := tenantID(w, r)
	if !ok {
		return
	}

	t, err := h.svc.Remove(r.Context(), id)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, t)
}

func tenantID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "ref"))
	if err != nil {
		response.FromError(w, r, apperr.BadRequest("Invalid id"))
		return uuid.Nil, false
	}
	return id, true
}
