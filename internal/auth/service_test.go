package auth_test

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/kiranshivaraju/tenantcore/internal/apperr"
	"github.com/kiranshivaraju/tenantcore/internal/auth"
	"github.com/kiranshivaraju/tenantcore/internal/auth/mock"
	"github.com/kiranshivaraju/tenantcore/internal/metrics"
	"github.com/kiranshivaraju/tenantcore/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_DelegatesToProvider(t *testing.T) {
	svc := auth.NewService(mock.NewMockProvider(), nil)

	pair, err := svc.Login(context.Background(), models.Credentials{Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "id-token-for-ana@example.com", pair.IDToken)
	assert.Equal(t, models.DefaultExpiresIn, pair.ExpiresIn)
}

func TestLogin_ProviderErrorPassesThrough(t *testing.T) {
	svc := auth.NewService(mock.NewFailingProvider(apperr.Unauthorized("INVALID_PASSWORD")), nil)

	_, err := svc.Login(context.Background(), models.Credentials{Email: "ana@example.com", Password: "secret1"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	assert.Equal(t, "INVALID_PASSWORD", err.Error())
}

func TestRefresh_RequiresToken(t *testing.T) {
	p := mock.NewMockProvider()
	called := false
	p.RefreshFunc = func(context.Context, models.RefreshRequest) (*models.TokenPair, error) {
		called = true
		return nil, nil
	}
	svc := auth.NewService(p, nil)

	for _, tok := range []string{"", "   "} {
		_, err := svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: tok})
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindBadRequest))
		assert.Equal(t, "Refresh token is required", err.Error())
	}
	assert.False(t, called)
}

func TestRefresh_Success(t *testing.T) {
	svc := auth.NewService(mock.NewMockProvider(), nil)

	pair, err := svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: "rt-1"})
	require.NoError(t, err)
	assert.Equal(t, "refreshed-id-token", pair.IDToken)
	assert.Equal(t, "rt-1", pair.RefreshToken)
}

func TestLogout_RevokesSubject(t *testing.T) {
	p := mock.NewMockProvider()
	svc := auth.NewService(p, nil)

	res, err := svc.Logout(context.Background(), "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "Logged out successfully", res.Message)
	assert.Equal(t, []string{"uid-1"}, p.RevokedCalls)
}

func TestLogout_Failure(t *testing.T) {
	svc := auth.NewService(mock.NewFailingProvider(apperr.Unauthorized("Logout failed")), nil)

	_, err := svc.Logout(context.Background(), "uid-1")
	require.Error(t, err)
	assert.Equal(t, "Logout failed", err.Error())
}

func TestLogout_NoSubject(t *testing.T) {
	p := mock.NewMockProvider()
	_, err := auth.NewService(p, nil).Logout(context.Background(), "")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	assert.Empty(t, p.RevokedCalls)
}

func TestService_RecordsMetrics(t *testing.T) {
	m := metrics.New()
	p := mock.NewMockProvider()
	p.RefreshFunc = func(context.Context, models.RefreshRequest) (*models.TokenPair, error) {
		return nil, errors.New("boom")
	}
	svc := auth.NewService(p, m)

	_, _ = svc.Login(context.Background(), models.Credentials{Email: "a@b.co", Password: "secret1"})
	_, _ = svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: "rt"})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `tenantcore_auth_attempts_total{operation="login",provider="mock",result="success"} 1`)
	assert.Contains(t, string(body), `tenantcore_auth_attempts_total{operation="refresh",provider="mock",result="failure"} 1`)
}
