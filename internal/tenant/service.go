// Package tenant manages tenant registration and lookup. Slug lookups are
// served through the shared cache because every tenant-scoped request
// performs one.
package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/tenantcore/internal/apperr"
	"github.com/kiranshivaraju/tenantcore/internal/cache"
	"github.com/kiranshivaraju/tenantcore/internal/metrics"
	"github.com/kiranshivaraju/tenantcore/internal/store"
	"github.com/kiranshivaraju/tenantcore/pkg/models"
)

const defaultCacheTTL = 5 * time.Minute

// Store is the subset of store.Store the tenant service needs.
type Store interface {
	CreateTenant(ctx context.Context, t *models.Tenant) error
	GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	UpdateTenant(ctx context.Context, t *models.Tenant) error
	SoftDeleteTenant(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	store   Store
	cache   cache.Cache
	ttl     time.Duration
	metrics *metrics.Metrics
}

// NewService creates a tenant service. m may be nil.
func NewService(s Store, c cache.Cache, ttl time.Duration, m *metrics.Metrics) *Service {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Service{store: s, cache: c, ttl: ttl, metrics: m}
}

// SlugAvailability is the result of ValidateSlug.
type SlugAvailability struct {
	Available bool `json:"available"`
}

var errSlugInUse = apperr.BadRequest("Slug already in use")

func (s *Service) Create(ctx context.Context, in models.CreateTenantInput) (*models.Tenant, error) {
	slug := models.NormalizeSlug(in.Slug)

	existing, err := s.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errSlugInUse
	}

	t := &models.Tenant{Slug: slug, Name: in.Name}
	if err := s.store.CreateTenant(ctx, t); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, errSlugInUse
		}
		return nil, fmt.Errorf("create tenant: %w", err)
	}

	slog.Info("tenant created", "tenant_id", t.ID, "slug", t.Slug)
	return t, nil
}

// ValidateSlug reports whether no live tenant holds slug.
func (s *Service) ValidateSlug(ctx context.Context, slug string) (SlugAvailability, error) {
	slug = models.NormalizeSlug(slug)
	if slug == "" {
		return SlugAvailability{}, apperr.BadRequest("slug is required")
	}
	t, err := s.FindBySlug(ctx, slug)
	if err != nil {
		return SlugAvailability{}, err
	}
	return SlugAvailability{Available: t == nil}, nil
}

func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	t, err := s.store.GetTenant(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Tenant not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find tenant: %w", err)
	}
	return t, nil
}

// FindBySlug returns the live tenant holding slug, or (nil, nil) when there
// is none. Hits are cached; misses are not.
func (s *Service) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	slug = models.NormalizeSlug(slug)
	key := cache.TenantSlugKey(slug)

	if raw, ok, err := s.cache.Get(ctx, key); err != nil {
		slog.Warn("tenant cache read failed", "slug", slug, "error", err)
	} else if ok {
		var t models.Tenant
		if err := json.Unmarshal(raw, &t); err == nil {
			s.metrics.ObserveTenantLookup(true)
			return &t, nil
		}
	}
	s.metrics.ObserveTenantLookup(false)

	t, err := s.store.GetTenantBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find tenant by slug: %w", err)
	}

	if raw, err := json.Marshal(t); err == nil {
		if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
			slog.Warn("tenant cache write failed", "slug", slug, "error", err)
		}
	}
	return t, nil
}

// Update applies a partial update. A changed slug is re-checked against the
// other live tenants; an unchanged slug is not.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in models.UpdateTenantInput) (*models.Tenant, error) {
	t, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldSlug := t.Slug

	if in.Slug != nil {
		slug := models.NormalizeSlug(*in.Slug)
		if slug != t.Slug {
			other, err := s.FindBySlug(ctx, slug)
			if err != nil {
				return nil, err
			}
			if other != nil {
				return nil, errSlugInUse
			}
			t.Slug = slug
		}
	}
	if in.Name != nil {
		t.Name = *in.Name
	}

	if err := s.store.UpdateTenant(ctx, t); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateKey):
			return nil, errSlugInUse
		case errors.Is(err, store.ErrNotFound):
			return nil, apperr.NotFound("Tenant not found")
		}
		return nil, fmt.Errorf("update tenant: %w", err)
	}

	s.evict(ctx, oldSlug)
	return t, nil
}

// Remove soft-deletes the tenant and returns its pre-delete state.
func (s *Service) Remove(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	t, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.store.SoftDeleteTenant(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Tenant not found")
		}
		return nil, fmt.Errorf("delete tenant: %w", err)
	}

	s.evict(ctx, t.Slug)
	slog.Info("tenant deleted", "tenant_id", t.ID, "slug", t.Slug)
	return t, nil
}

func (s *Service) evict(ctx context.Context, slug string) {
	if err := s.cache.Delete(ctx, cache.TenantSlugKey(slug)); err != nil {
		slog.Warn("tenant cache evict failed", "slug", slug, "error", err)
	}
}
