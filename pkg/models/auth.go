package models

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Role is carried in ID-token claims and compared by the role guard.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStaff    Role = "staff"
	RoleCustomer Role = "customer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleCustomer:
		return true
	}
	return false
}

// DefaultExpiresIn is the ID-token lifetime in seconds assumed when the
// identity backend does not report one.
const DefaultExpiresIn = 3600

// TokenVerifier turns an ID token into a Principal. Implementations are stateless
// and report every failure as unauthorized.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, token string) (*Principal, error)
}

// AuthProvider exchanges credentials with the identity backend.
// Handlers depend on this interface, never on a concrete backend.
type AuthProvider interface {
	// AuthenticateWithCredentials signs a user in with email and password.
	AuthenticateWithCredentials(ctx context.Context, creds Credentials) (*TokenPair, error)
	// RefreshToken exchanges a refresh token for a fresh ID token.
	RefreshToken(ctx context.Context, req RefreshRequest) (*TokenPair, error)
	// RevokeRefreshTokens invalidates every refresh token issued to subject.
	RevokeRefreshTokens(ctx context.Context, subject string) error
	// Name returns the provider identifier (e.g., "identitytoolkit", "local").
	Name() string
}

// Principal is the authenticated identity for one request. It is never persisted.
type Principal struct {
	Subject string         `json:"sub"`
	Email   string         `json:"email,omitempty"`
	Role    Role           `json:"role,omitempty"`
	Claims  map[string]any `json:"-"`
}

// Credentials is the POST /auth/login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c Credentials) Validate() error {
	if err := validateEmail(c.Email); err != nil {
		return err
	}
	if c.Password == "" {
		return errors.New("password is required")
	}
	if len(c.Password) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	return nil
}

// RefreshRequest is the POST /auth/refresh payload.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// TokenPair is returned by login and refresh. ExpiresIn is in seconds.
type TokenPair struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

// Account is a credential record owned by the local auth provider.
// Only the bcrypt hash of the password is stored.
type Account struct {
	ID           uuid.UUID `db:"id"            json:"id"`
	Email        string    `db:"email"         json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role"          json:"role"`
	CreatedAt    time.Time `db:"created_at"    json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at"    json:"updatedAt"`
}
