package crud

import (
	"context"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/tenantcore/pkg/pagination"
)

// Service forwards to its repository unchanged. Resource services embed it
// and override the calls that need business rules.
type Service[E, C, U any] struct {
	repo Repository[E, C, U]
}

func NewService[E, C, U any](repo Repository[E, C, U]) *Service[E, C, U] {
	return &Service[E, C, U]{repo: repo}
}

func (s *Service[E, C, U]) FindPaginated(ctx context.Context, opts pagination.Options, tenantID uuid.UUID) (pagination.Response[E], error) {
	return s.repo.FindPaginated(ctx, opts, tenantID)
}

func (s *Service[E, C, U]) FindOne(ctx context.Context, id, tenantID uuid.UUID) (E, error) {
	return s.repo.FindOne(ctx, id, tenantID)
}

func (s *Service[E, C, U]) Create(ctx context.Context, data C, tenantID uuid.UUID) (E, error) {
	return s.repo.Create(ctx, data, tenantID)
}

func (s *Service[E, C, U]) Update(ctx context.Context, id uuid.UUID, data U, tenantID uuid.UUID) (E, error) {
	return s.repo.Update(ctx, id, data, tenantID)
}

func (s *Service[E, C, U]) Delete(ctx context.Context, id, tenantID uuid.UUID) (E, error) {
	return s.repo.Delete(ctx, id, tenantID)
}
