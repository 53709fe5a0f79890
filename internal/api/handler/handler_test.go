package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/tenantcore/internal/store"
	"github.com/kiranshivaraju/tenantcore/pkg/models"
	"github.com/stretchr/testify/require"
)

// memTenants is an in-memory tenant.Store that honours soft delete.
type memTenants struct {
	mu      sync.Mutex
	tenants map[uuid.UUID]*models.Tenant
}

func newMemTenants() *memTenants {
	return &memTenants{tenants: map[uuid.UUID]*models.Tenant{}}
}

func (m *memTenants) CreateTenant(_ context.Context, t *models.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.tenants {
		if existing.DeletedAt == nil && existing.Slug == t.Slug {
			return store.ErrDuplicateKey
		}
	}
	t.ID = uuid.New()
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	m.tenants[t.ID] = &cp
	return nil
}

func (m *memTenants) GetTenant(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok || t.DeletedAt != nil {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTenants) GetTenantBySlug(_ context.Context, slug string) (*models.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tenants {
		if t.DeletedAt == nil && t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memTenants) UpdateTenant(_ context.Context, t *models.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.tenants[t.ID]
	if !ok || existing.DeletedAt != nil {
		return store.ErrNotFound
	}
	for id, other := range m.tenants {
		if id != t.ID && other.DeletedAt == nil && other.Slug == t.Slug {
			return store.ErrDuplicateKey
		}
	}
	t.UpdatedAt = time.Now().UTC()
	cp := *t
	m.tenants[t.ID] = &cp
	return nil
}

func (m *memTenants) SoftDeleteTenant(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok || t.DeletedAt != nil {
		return store.ErrNotFound
	}
	now := time.Now().UTC()
	t.DeletedAt = &now
	return nil
}

func request(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}
