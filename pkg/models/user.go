package models

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserSortFields lists the fields a users page may be sorted by.
var UserSortFields = []string{"id", "email", "name", "role", "active", "createdAt", "updatedAt"}

// User is a tenant-scoped member record managed through the generic CRUD routes.
type User struct {
	ID        uuid.UUID  `db:"id"         json:"id"`
	TenantID  uuid.UUID  `db:"tenant_id"  json:"tenantId"`
	Email     string     `db:"email"      json:"email"`
	Name      string     `db:"name"       json:"name"`
	Role      Role       `db:"role"       json:"role"`
	Active    bool       `db:"active"     json:"active"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
}

// CreateUserInput carries no tenant field: the owning tenant always comes
// from the resolved request context.
type CreateUserInput struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	Active *bool  `json:"active,omitempty"`
}

func (in CreateUserInput) Validate() error {
	if err := validateEmail(in.Email); err != nil {
		return err
	}
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("name is required")
	}
	if !in.Role.Valid() {
		return errors.New("role must be one of admin, staff, customer")
	}
	return nil
}

// IsActive defaults to true when the payload omits the flag.
func (in CreateUserInput) IsActive() bool {
	return in.Active == nil || *in.Active
}

// UpdateUserInput is a partial update; nil fields are left unchanged.
type UpdateUserInput struct {
	Email  *string `json:"email,omitempty"`
	Name   *string `json:"name,omitempty"`
	Role   *Role   `json:"role,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

func (in UpdateUserInput) Validate() error {
	if in.Empty() {
		return errors.New("at least one field is required")
	}
	if in.Email != nil {
		if err := validateEmail(*in.Email); err != nil {
			return err
		}
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return errors.New("name must not be empty")
	}
	if in.Role != nil && !in.Role.Valid() {
		return errors.New("role must be one of admin, staff, customer")
	}
	return nil
}

// Empty reports whether the update changes nothing.
func (in UpdateUserInput) Empty() bool {
	return in.Email == nil && in.Name == nil && in.Role == nil && in.Active == nil
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.New("email must be a valid address")
	}
	return nil
}
