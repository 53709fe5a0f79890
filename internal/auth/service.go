// Package auth fronts the configured identity backend. Handlers call the
// Service; the Service calls whichever models.AuthProvider was wired at
// startup.
package auth

import (
	"context"
	"strings"

	"github.com/kiranshivaraju/tenantcore/internal/apperr"
	"github.com/kiranshivaraju/tenantcore/internal/metrics"
	"github.com/kiranshivaraju/tenantcore/pkg/models"
)

// LogoutResult is the body returned by a successful logout.
type LogoutResult struct {
	Message string `json:"message"`
}

// Service orchestrates login, refresh and logout.
type Service struct {
	provider models.AuthProvider
	metrics  *metrics.Metrics
}

// NewService creates a new Service. m may be nil.
func NewService(provider models.AuthProvider, m *metrics.Metrics) *Service {
	return &Service{provider: provider, metrics: m}
}

func (s *Service) Login(ctx context.Context, creds models.Credentials) (*models.TokenPair, error) {
	pair, err := s.provider.AuthenticateWithCredentials(ctx, creds)
	s.metrics.ObserveAuth(s.provider.Name(), "login", err)
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *Service) Refresh(ctx context.Context, req models.RefreshRequest) (*models.TokenPair, error) {
	if strings.TrimSpace(req.RefreshToken) == "" {
		return nil, apperr.BadRequest("Refresh token is required")
	}
	pair, err := s.provider.RefreshToken(ctx, req)
	s.metrics.ObserveAuth(s.provider.Name(), "refresh", err)
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes every refresh token held by subject.
func (s *Service) Logout(ctx context.Context, subject string) (*LogoutResult, error) {
	if subject == "" {
		return nil, apperr.Unauthorized("User not authenticated")
	}
	err := s.provider.RevokeRefreshTokens(ctx, subject)
	s.metrics.ObserveAuth(s.provider.Name(), "logout", err)
	if err != nil {
		return nil, err
	}
	return &LogoutResult{Message: "Logged out successfully"}, nil
}
