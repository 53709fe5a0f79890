package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const minSlugLen = 3

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Tenant is the isolation boundary. Every other entity belongs to exactly one tenant.
// A tenant with DeletedAt set is soft-deleted and invisible to every read path.
type Tenant struct {
	ID        uuid.UUID  `db:"id"         json:"id"`
	Slug      string     `db:"slug"       json:"slug"`
	Name      string     `db:"name"       json:"name"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
	DeletedAt *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
}

// CreateTenantInput is the registration payload for POST /tenants.
type CreateTenantInput struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (in CreateTenantInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("name is required")
	}
	return ValidateSlug(in.Slug)
}

// UpdateTenantInput is a partial update; nil fields are left unchanged.
type UpdateTenantInput struct {
	Name *string `json:"name,omitempty"`
	Slug *string `json:"slug,omitempty"`
}

func (in UpdateTenantInput) Validate() error {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return errors.New("name must not be empty")
	}
	if in.Slug != nil {
		return ValidateSlug(*in.Slug)
	}
	return nil
}

// ValidateSlug checks that slug is lowercase, URL-safe and at least three characters.
func ValidateSlug(slug string) error {
	if slug == "" {
		return errors.New("slug is required")
	}
	if len(slug) < minSlugLen {
		return fmt.Errorf("slug must be at least %d characters", minSlugLen)
	}
	if !slugPattern.MatchString(slug) {
		return errors.New("Slug must contain only lowercase letters, numbers and hyphens")
	}
	return nil
}

// NormalizeSlug lowercases and trims a slug taken from a URL or header.
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}
