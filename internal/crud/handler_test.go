package crud_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/tenantcore/internal/api/middleware"
	"github.com/kiranshivaraju/tenantcore/internal/api/route"
	"github.com/kiranshivaraju/tenantcore/internal/crud"
	"github.com/kiranshivaraju/tenantcore/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handlerFixture struct {
	tbl    *memTable
	tenant *models.Tenant
	router http.Handler
}

// newFixture mounts the widget routes behind a stub tenant and principal.
// A nil tenant simulates a handler mounted without tenant resolution.
func newFixture(t *testing.T, tenant *models.Tenant, role models.Role) *handlerFixture {
	t.Helper()
	tbl := newMemTable()
	svc := crud.NewService[widget, createWidget, updateWidget](
		crud.NewBaseRepository[widget, createWidget, updateWidget]("Widget", tbl))
	h := crud.NewHandler[widget, createWidget, updateWidget](svc, crud.HandlerConfig{
		Resource:   "widgets",
		SortFields: []string{"name"},
		WriteRoles: []models.Role{models.RoleAdmin},
	})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := middleware.SetPrincipal(req.Context(), &models.Principal{Subject: "u1", Role: role})
			if tenant != nil {
				ctx = middleware.SetTenant(ctx, tenant)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	route.Mount(r, h.Routes())

	return &handlerFixture{tbl: tbl, tenant: tenant, router: r}
}

func (f *handlerFixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["data"].(map[string]any)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"].(map[string]any)
}

func TestRoutes_Table(t *testing.T) {
	h := crud.NewHandler[widget, createWidget, updateWidget](nil, crud.HandlerConfig{
		Resource:   "widgets",
		ReadRoles:  []models.Role{models.RoleStaff},
		WriteRoles: []models.Role{models.RoleAdmin},
	})

	routes := h.Routes()
	require.Len(t, routes, 5)

	var got []string
	for _, rt := range routes {
		got = append(got, rt.Method+" "+rt.Pattern+" "+string(rt.Roles[0]))
	}
	assert.Equal(t, []string{
		"GET /widgets staff",
		"GET /widgets/{id} staff",
		"POST /widgets admin",
		"PATCH /widgets/{id} admin",
		"DELETE /widgets/{id} admin",
	}, got)
}

func TestHandler_CreateIgnoresBodyTenant(t *testing.T) {
	tenant := &models.Tenant{ID: uuid.New(), Slug: "acme"}
	f := newFixture(t, tenant, models.RoleAdmin)
	spoofed := uuid.New()

	w := f.do(http.MethodPost, "/widgets", `{"name":"gear","tenantId":"`+spoofed.String()+`"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, tenant.ID.String(), data["tenantId"])
	assert.Equal(t, 1, f.tbl.inserts)
}

func TestHandler_CreateValidates(t *testing.T) {
	f := newFixture(t, &models.Tenant{ID: uuid.New()}, models.RoleAdmin)

	w := f.do(http.MethodPost, "/widgets", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "name is required", decodeError(t, w)["message"])

	w = f.do(http.MethodPost, "/widgets", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid JSON body", decodeError(t, w)["message"])

	assert.Equal(t, 0, f.tbl.inserts)
}

func TestHandler_WriteRequiresRole(t *testing.T) {
	f := newFixture(t, &models.Tenant{ID: uuid.New()}, models.RoleStaff)

	w := f.do(http.MethodPost, "/widgets", `{"name":"gear"}`)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, f.tbl.inserts)
}

func TestHandler_FindOne(t *testing.T) {
	tenant := &models.Tenant{ID: uuid.New()}
	f := newFixture(t, tenant, models.RoleCustomer)
	mine := f.tbl.seed(tenant.ID, "gear")
	theirs := f.tbl.seed(uuid.New(), "other")

	w := f.do(http.MethodGet, "/widgets/"+mine.ID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gear", decodeData(t, w)["name"])

	w = f.do(http.MethodGet, "/widgets/"+theirs.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Widget not found", decodeError(t, w)["message"])

	w = f.do(http.MethodGet, "/widgets/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_FindPaginated(t *testing.T) {
	tenant := &models.Tenant{ID: uuid.New()}
	f := newFixture(t, tenant, models.RoleStaff)
	for _, n := range []string{"a", "b", "c"} {
		f.tbl.seed(tenant.ID, n)
	}

	w := f.do(http.MethodGet, "/widgets?first=1&rows=1&sortField=name&sortOrder=-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Data      []widget `json:"data"`
		Total     int      `json:"total"`
		Page      int      `json:"page"`
		PageCount int      `json:"pageCount"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 3, page.PageCount)
	assert.Len(t, page.Data, 1)
}

func TestHandler_FindPaginatedRejectsBadOptions(t *testing.T) {
	f := newFixture(t, &models.Tenant{ID: uuid.New()}, models.RoleStaff)

	for _, q := range []string{"rows=0", "rows=101", "first=-1", "sortOrder=2", "sortField=secret", "rows=abc"} {
		t.Run(q, func(t *testing.T) {
			w := f.do(http.MethodGet, "/widgets?"+q, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandler_UpdateAndDelete(t *testing.T) {
	tenant := &models.Tenant{ID: uuid.New()}
	f := newFixture(t, tenant, models.RoleAdmin)
	w0 := f.tbl.seed(tenant.ID, "gear")

	w := f.do(http.MethodPatch, "/widgets/"+w0.ID.String(), `{"name":"cog"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cog", decodeData(t, w)["name"])

	w = f.do(http.MethodPatch, "/widgets/"+w0.ID.String(), `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodDelete, "/widgets/"+w0.ID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cog", decodeData(t, w)["name"])

	w = f.do(http.MethodDelete, "/widgets/"+w0.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_MissingTenantContextIsInternal(t *testing.T) {
	f := newFixture(t, nil, models.RoleAdmin)

	w := f.do(http.MethodGet, "/widgets", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, w)["code"])
}
