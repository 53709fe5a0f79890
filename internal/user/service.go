// Package user wires the users resource onto the generic CRUD triad.
package user

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/tenantcore/internal/apperr"
	"github.com/kiranshivaraju/tenantcore/internal/crud"
	"github.com/kiranshivaraju/tenantcore/internal/store"
	"github.com/kiranshivaraju/tenantcore/pkg/models"
)

type (
	Repository = crud.Repository[models.User, models.CreateUserInput, models.UpdateUserInput]
	Handler    = crud.Handler[models.User, models.CreateUserInput, models.UpdateUserInput]
)

// Service normalizes emails on write and reports a taken email as a bad
// request. Reads pass straight through.
type Service struct {
	*crud.Service[models.User, models.CreateUserInput, models.UpdateUserInput]
}

func NewService(repo Repository) *Service {
	return &Service{Service: crud.NewService(repo)}
}

// NewRepository builds the users repository over a storage table.
func NewRepository(table crud.Table[models.User, models.CreateUserInput, models.UpdateUserInput]) Repository {
	return crud.NewBaseRepository("User", table)
}

// NewHandler mounts users with reads open to every role and writes limited
// to admins.
func NewHandler(svc *Service) *Handler {
	return crud.NewHandler[models.User, models.CreateUserInput, models.UpdateUserInput](svc, crud.HandlerConfig{
		Resource:   "users",
		SortFields: models.UserSortFields,
		ReadRoles:  []models.Role{models.RoleAdmin, models.RoleStaff, models.RoleCustomer},
		WriteRoles: []models.Role{models.RoleAdmin},
	})
}

func (s *Service) Create(ctx context.Context, in models.CreateUserInput, tenantID uuid.UUID) (models.User, error) {
	in.Email = normalizeEmail(in.Email)
	u, err := s.Service.Create(ctx, in, tenantID)
	return u, emailTaken(err)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in models.UpdateUserInput, tenantID uuid.UUID) (models.User, error) {
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		in.Email = &email
	}
	u, err := s.Service.Update(ctx, id, in, tenantID)
	return u, emailTaken(err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func emailTaken(err error) error {
	if errors.Is(err, store.ErrDuplicateKey) {
		return apperr.BadRequest("Email already in use").Wrap(err)
	}
	return err
}
