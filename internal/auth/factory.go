package auth

import (
	"fmt"

	"github.com/kiranshivaraju/tenantcore/internal/auth/identitytoolkit"
	"github.com/kiranshivaraju/tenantcore/internal/auth/local"
	"github.com/kiranshivaraju/tenantcore/internal/cache"
	"github.com/kiranshivaraju/tenantcore/internal/config"
	"github.com/kiranshivaraju/tenantcore/pkg/models"
)

// Backend pairs a provider with the verifier for tokens it issues.
type Backend struct {
	Provider models.AuthProvider
	Verifier models.TokenVerifier
}

// NewBackend constructs the identity backend selected by config.
// Called once at server startup. accounts and c are only used by the
// local backend.
func NewBackend(cfg config.AuthConfig, accounts local.AccountStore, c cache.Cache) (*Backend, error) {
	switch cfg.Provider {
	case config.ProviderIdentityToolkit:
		return newIdentityToolkit(cfg.IdentityToolkit)
	case config.ProviderLocal:
		return newLocal(cfg.Local, accounts, c)
	default:
		return nil, fmt.Errorf("unknown auth provider %q: must be one of %s, %s",
			cfg.Provider, config.ProviderIdentityToolkit, config.ProviderLocal)
	}
}

func newIdentityToolkit(cfg config.IdentityToolkitConfig) (*Backend, error) {
	itCfg := identitytoolkit.Config{
		APIKey:    cfg.APIKey,
		ProjectID: cfg.ProjectID,
		Timeout:   cfg.Timeout,
	}
	if cfg.ServiceAccountBase64 != "" {
		sa, err := identitytoolkit.ParseServiceAccountBase64(cfg.ServiceAccountBase64)
		if err != nil {
			return nil, err
		}
		itCfg.ServiceAccount = sa
		if itCfg.ProjectID == "" {
			itCfg.ProjectID = sa.ProjectID
		}
	}

	provider, err := identitytoolkit.NewProvider(itCfg)
	if err != nil {
		return nil, err
	}
	verifier, err := identitytoolkit.NewVerifier(itCfg.ProjectID, itCfg)
	if err != nil {
		return nil, err
	}
	return &Backend{Provider: provider, Verifier: verifier}, nil
}

func newLocal(cfg config.LocalAuthConfig, accounts local.AccountStore, c cache.Cache) (*Backend, error) {
	if accounts == nil || c == nil {
		return nil, fmt.Errorf("local auth requires an account store and a cache")
	}
	lc := local.Config{
		Secret:          []byte(cfg.Secret),
		Issuer:          cfg.Issuer,
		IDTokenTTL:      cfg.IDTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	}
	provider, err := local.NewProvider(accounts, c, lc)
	if err != nil {
		return nil, err
	}
	verifier, err := local.NewVerifier(c, lc)
	if err != nil {
		return nil, err
	}
	return &Backend{Provider: provider, Verifier: verifier}, nil
}
