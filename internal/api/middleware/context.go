package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/tenantcore/pkg/models"
)

type contextKey string

const (
	tenantKey    contextKey = "tenant"
	principalKey contextKey = "principal"
)

func SetTenant(ctx context.Context, t *models.Tenant) context.Context {
	return context.WithValue(ctx, tenantKey, t)
}

func GetTenant(r *http.Request) (*models.Tenant, bool) {
	t, ok := r.Context().Value(tenantKey).(*models.Tenant)
	return t, ok && t != nil
}

// GetTenantID returns the id of the tenant resolved for this request.
func GetTenantID(r *http.Request) (uuid.UUID, bool) {
	t, ok := GetTenant(r)
	if !ok {
		return uuid.Nil, false
	}
	return t.ID, true
}

func SetPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func GetPrincipal(r *http.Request) (*models.Principal, bool) {
	p, ok := r.Context().Value(principalKey).(*models.Principal)
	return p, ok && p != nil
}
