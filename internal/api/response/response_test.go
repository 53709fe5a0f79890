package response_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kiranshivaraju/tenantcore/internal/api/response"
	"github.com/kiranshivaraju/tenantcore/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	response.JSON(w, map[string]string{"name": "test"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data := body["data"].(map[string]any)
	assert.Equal(t, "test", data["name"])
}

func TestCreated(t *testing.T) {
	w := httptest.NewRecorder()
	response.Created(w, map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data := body["data"].(map[string]any)
	assert.Equal(t, "abc", data["id"])
}

func TestPaginated_WritesPageAtTopLevel(t *testing.T) {
	w := httptest.NewRecorder()
	page := map[string]any{
		"data":      []map[string]string{{"id": "1"}, {"id": "2"}},
		"total":     25,
		"page":      2,
		"pageCount": 3,
	}

	response.Paginated(w, page)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Len(t, body["data"].([]any), 2)
	assert.Equal(t, float64(25), body["total"])
	assert.Equal(t, float64(3), body["pageCount"])
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()
	response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid params", map[string][]string{
		"service": {"service is required"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	errObj := body["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_ERROR", errObj["code"])
	assert.Equal(t, "Invalid params", errObj["message"])
	assert.NotNil(t, errObj["details"])
}

func TestError_NoDetails(t *testing.T) {
	w := httptest.NewRecorder()
	response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Not found", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	errObj := body["error"].(map[string]any)
	assert.Equal(t, "RESOURCE_NOT_FOUND", errObj["code"])
	_, hasDetails := errObj["details"]
	assert.False(t, hasDetails)
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"].(map[string]any)
}

func TestFromError_MapsKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "bad request", err: apperr.BadRequest("Tenant not informed"), status: http.StatusBadRequest, code: "BAD_REQUEST"},
		{name: "unauthorized", err: apperr.Unauthorized("Invalid token"), status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "forbidden", err: apperr.RoleNotAuthorized([]string{"admin"}, "customer"), status: http.StatusForbidden, code: "ROLE_NOT_AUTHORIZED"},
		{name: "not found wrapped", err: fmt.Errorf("find: %w", apperr.NotFound("User not found")), status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "internal", err: errors.New("connection refused"), status: http.StatusInternalServerError, code: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/x", nil)

			response.FromError(w, r, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, errorBody(t, w)["code"])
		})
	}
}

func TestFromError_InternalDoesNotLeakCause(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/x", nil)

	response.FromError(w, r, errors.New("pq: password authentication failed for user app"))

	assert.Equal(t, "An unexpected error occurred", errorBody(t, w)["message"])
}

func TestFromError_ForbiddenCarriesRoleDetails(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/x", nil)

	response.FromError(w, r, apperr.RoleNotAuthorized([]string{"admin"}, "customer"))

	details := errorBody(t, w)["details"].(map[string]any)
	assert.Equal(t, []any{"admin"}, details["requiredRoles"])
	assert.Equal(t, "customer", details["userRole"])
}
