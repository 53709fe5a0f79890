package crud

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/tenantcore/internal/api/middleware"
	"github.com/kiranshivaraju/tenantcore/internal/api/response"
	"github.com/kiranshivaraju/tenantcore/internal/api/route"
	"github.com/kiranshivaraju/tenantcore/internal/apperr"
	"github.com/kiranshivaraju/tenantcore/pkg/models"
	"github.com/kiranshivaraju/tenantcore/pkg/pagination"
)

// Validator is implemented by request shapes that check themselves after
// decoding.
type Validator interface {
	Validate() error
}

// HandlerConfig describes one mounted resource.
type HandlerConfig struct {
	// Resource is the path segment, e.g. "users".
	Resource   string
	SortFields []string
	ReadRoles  []models.Role
	WriteRoles []models.Role
}

// Handler exposes the five uniform CRUD routes for one resource. It must sit
// behind ResolveTenant; the tenant is never read from the request body.
type Handler[E any, C, U Validator] struct {
	svc Operations[E, C, U]
	cfg HandlerConfig
}

func NewHandler[E any, C, U Validator](svc Operations[E, C, U], cfg HandlerConfig) *Handler[E, C, U] {
	return &Handler[E, C, U]{svc: svc, cfg: cfg}
}

// Routes returns the route table for the resource, relative to the mount point.
func (h *Handler[E, C, U]) Routes() []route.Route {
	collection := "/" + h.cfg.Resource
	item := collection + "/{id}"
	return []route.Route{
		{Method: http.MethodGet, Pattern: collection, Handler: h.FindPaginated, Roles: h.cfg.ReadRoles},
		{Method: http.MethodGet, Pattern: item, Handler: h.FindOne, Roles: h.cfg.ReadRoles},
		{Method: http.MethodPost, Pattern: collection, Handler: h.Create, Roles: h.cfg.WriteRoles},
		{Method: http.MethodPatch, Pattern: item, Handler: h.Update, Roles: h.cfg.WriteRoles},
		{Method: http.MethodDelete, Pattern: item, Handler: h.Delete, Roles: h.cfg.WriteRoles},
	}
}

func (h *Handler[E, C, U]) FindPaginated(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	opts, err := pagination.ParseQuery(r.URL.Query(), h.cfg.SortFields)
	if err != nil {
		response.FromError(w, r, apperr.BadRequest(err.Error()).Wrap(err))
		return
	}

	page, err := h.svc.FindPaginated(r.Context(), opts, tenantID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Paginated(w, page)
}

func (h *Handler[E, C, U]) FindOne(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	id, ok := idFrom(w, r)
	if !ok {
		return
	}

	item, err := h.svc.FindOne(r.Context(), id, tenantID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, item)
}

func (h *Handler[E, C, U]) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	var in C
	if !decode(w, r, &in) {
		return
	}

	item, err := h.svc.Create(r.Context(), in, tenantID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Created(w, item)
}

func (h *Handler[E, C, U]) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	id, ok := idFrom(w, r)
	if !ok {
		return
	}
	var in U
	if !decode(w, r, &in) {
		return
	}

	item, err := h.svc.Update(r.Context(), id, in, tenantID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, item)
}

func (h *Handler[E, C, U]) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	id, ok := idFrom(w, r)
	if !ok {
		return
	}

	item, err := h.svc.Delete(r.Context(), id, tenantID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, item)
}

var errNoTenant = errors.New("crud handler mounted without tenant resolution")

func tenantFrom(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.GetTenantID(r)
	if !ok {
		response.FromError(w, r, errNoTenant)
	}
	return id, ok
}

func idFrom(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.FromError(w, r, apperr.BadRequest("Invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

// decode reads a JSON body into v and validates it. Unknown fields are
// ignored.
func decode[T Validator](w http.ResponseWriter, r *http.Request, v *T) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.FromError(w, r, apperr.BadRequest("Invalid JSON body"))
		return false
	}
	if err := (*v).Validate(); err != nil {
		response.FromError(w, r, apperr.BadRequest(err.Error()))
		return false
	}
	return true
}
