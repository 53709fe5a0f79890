// Package crud provides the generic tenant-scoped repository, service and
// HTTP handler triad. A resource plugs in by supplying a Table for its
// storage and the entity, create and update shapes as type parameters.
package crud

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/tenantcore/internal/apperr"
	"github.com/kiranshivaraju/tenantcore/internal/store"
	"github.com/kiranshivaraju/tenantcore/pkg/pagination"
)

// Operations is the five-call contract shared by repositories and services.
// Every call is scoped by an explicit tenant id.
type Operations[E, C, U any] interface {
	FindPaginated(ctx context.Context, opts pagination.Options, tenantID uuid.UUID) (pagination.Response[E], error)
	FindOne(ctx context.Context, id, tenantID uuid.UUID) (E, error)
	Create(ctx context.Context, data C, tenantID uuid.UUID) (E, error)
	Update(ctx context.Context, id uuid.UUID, data U, tenantID uuid.UUID) (E, error)
	Delete(ctx context.Context, id, tenantID uuid.UUID) (E, error)
}

// Repository is the persistence seam for one entity type. FindOne, Update
// and Delete return a NotFound apperr exactly when no live row matches
// (id, tenantID).
type Repository[E, C, U any] interface {
	Operations[E, C, U]
}

// Table is the storage primitive a BaseRepository is built on. Implementations
// bind the tenant id into every statement and return store.ErrNotFound when
// no live row matches.
type Table[E, C, U any] interface {
	Select(ctx context.Context, id, tenantID uuid.UUID) (E, error)
	List(ctx context.Context, tenantID uuid.UUID, opts pagination.Options) ([]E, int, error)
	Insert(ctx context.Context, tenantID uuid.UUID, data C) (E, error)
	Patch(ctx context.Context, id, tenantID uuid.UUID, data U) error
	SoftDelete(ctx context.Context, id, tenantID uuid.UUID) error
}

// BaseRepository implements Repository over a Table.
type BaseRepository[E, C, U any] struct {
	table Table[E, C, U]
	label string
}

// NewBaseRepository creates a repository. label names the resource in
// NotFound messages, e.g. "User".
func NewBaseRepository[E, C, U any](label string, table Table[E, C, U]) *BaseRepository[E, C, U] {
	return &BaseRepository[E, C, U]{table: table, label: label}
}

func (r *BaseRepository[E, C, U]) FindPaginated(ctx context.Context, opts pagination.Options, tenantID uuid.UUID) (pagination.Response[E], error) {
	items, total, err := r.table.List(ctx, tenantID, opts)
	if err != nil {
		return pagination.Response[E]{}, fmt.Errorf("list %s: %w", r.label, err)
	}
	return pagination.NewResponse(items, total, opts), nil
}

func (r *BaseRepository[E, C, U]) FindOne(ctx context.Context, id, tenantID uuid.UUID) (E, error) {
	item, err := r.table.Select(ctx, id, tenantID)
	if err != nil {
		var zero E
		return zero, r.classify(err)
	}
	return item, nil
}

// Create binds tenantID as the owning tenant. The create shape carries no
// tenant field of its own.
func (r *BaseRepository[E, C, U]) Create(ctx context.Context, data C, tenantID uuid.UUID) (E, error) {
	item, err := r.table.Insert(ctx, tenantID, data)
	if err != nil {
		var zero E
		return zero, fmt.Errorf("create %s: %w", r.label, err)
	}
	return item, nil
}

// Update confirms ownership, patches, and returns the re-read row.
func (r *BaseRepository[E, C, U]) Update(ctx context.Context, id uuid.UUID, data U, tenantID uuid.UUID) (E, error) {
	var zero E
	if _, err := r.FindOne(ctx, id, tenantID); err != nil {
		return zero, err
	}
	if err := r.table.Patch(ctx, id, tenantID, data); err != nil {
		return zero, r.classify(err)
	}
	return r.FindOne(ctx, id, tenantID)
}

// Delete confirms ownership, soft-deletes, and returns the pre-delete snapshot.
func (r *BaseRepository[E, C, U]) Delete(ctx context.Context, id, tenantID uuid.UUID) (E, error) {
	item, err := r.FindOne(ctx, id, tenantID)
	if err != nil {
		return item, err
	}
	if err := r.table.SoftDelete(ctx, id, tenantID); err != nil {
		var zero E
		return zero, r.classify(err)
	}
	return item, nil
}

func (r *BaseRepository[E, C, U]) classify(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(r.label + " not found")
	}
	return fmt.Errorf("%s: %w", r.label, err)
}
