package mock

import (
	"context"
	"errors"

	"github.com/kiranshivaraju/tenantcore/pkg/models"
)

var errInvalidToken = errors.New("mock: unknown token")

var (
	_ models.AuthProvider  = (*MockProvider)(nil)
	_ models.TokenVerifier = (*MockVerifier)(nil)
)

// MockProvider satisfies models.AuthProvider for testing.
type MockProvider struct {
	Name_        string
	LoginFunc    func(ctx context.Context, creds models.Credentials) (*models.TokenPair, error)
	RefreshFunc  func(ctx context.Context, req models.RefreshRequest) (*models.TokenPair, error)
	RevokeFunc   func(ctx context.Context, subject string) error
	RevokedCalls []string
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) AuthenticateWithCredentials(ctx context.Context, creds models.Credentials) (*models.TokenPair, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, creds)
	}
	return &models.TokenPair{}, nil
}

func (m *MockProvider) RefreshToken(ctx context.Context, req models.RefreshRequest) (*models.TokenPair, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, req)
	}
	return &models.TokenPair{}, nil
}

func (m *MockProvider) RevokeRefreshTokens(ctx context.Context, subject string) error {
	m.RevokedCalls = append(m.RevokedCalls, subject)
	if m.RevokeFunc != nil {
		return m.RevokeFunc(ctx, subject)
	}
	return nil
}

// NewMockProvider returns a MockProvider with canned token responses.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock",
		LoginFunc: func(_ context.Context, creds models.Credentials) (*models.TokenPair, error) {
			return &models.TokenPair{
				IDToken:      "id-token-for-" + creds.Email,
				RefreshToken: "refresh-token",
				ExpiresIn:    models.DefaultExpiresIn,
			}, nil
		},
		RefreshFunc: func(_ context.Context, req models.RefreshRequest) (*models.TokenPair, error) {
			return &models.TokenPair{
				IDToken:      "refreshed-id-token",
				RefreshToken: req.RefreshToken,
				ExpiresIn:    models.DefaultExpiresIn,
			}, nil
		},
	}
}

// NewFailingProvider returns a MockProvider whose every operation fails with err.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_:       "mock",
		LoginFunc:   func(context.Context, models.Credentials) (*models.TokenPair, error) { return nil, err },
		RefreshFunc: func(context.Context, models.RefreshRequest) (*models.TokenPair, error) { return nil, err },
		RevokeFunc:  func(context.Context, string) error { return err },
	}
}

// MockVerifier satisfies models.TokenVerifier. Tokens map to principals.
type MockVerifier struct {
	Principals map[string]*models.Principal
	Err        error
}

func (m *MockVerifier) VerifyIDToken(_ context.Context, token string) (*models.Principal, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if p, ok := m.Principals[token]; ok {
		return p, nil
	}
	return nil, errInvalidToken
}
