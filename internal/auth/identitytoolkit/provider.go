// Package identitytoolkit implements the auth ports against Google's Identity
// Toolkit and Secure Token REST endpoints.
package identitytoolkit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kiranshivaraju/tenantcore/internal/apperr"
	"github.com/kiranshivaraju/tenantcore/pkg/models"
)

const (
	defaultTimeout = 10 * time.Second

	DefaultSignInURL       = "https://identitytoolkit.googleapis.com/v1/accounts:signInWithPassword"
	DefaultSecureTokenURL  = "https://securetoken.googleapis.com/v1/token"
	DefaultAccountsBaseURL = "https://identitytoolkit.googleapis.com"
)

// Endpoints overrides the upstream URLs. Empty fields use Google's.
type Endpoints struct {
	SignIn       string
	SecureToken  string
	AccountsBase string
	Certs        string
}

func (e Endpoints) withDefaults() Endpoints {
	if e.SignIn == "" {
		e.SignIn = DefaultSignInURL
	}
	if e.SecureToken == "" {
		e.SecureToken = DefaultSecureTokenURL
	}
	if e.AccountsBase == "" {
		e.AccountsBase = DefaultAccountsBaseURL
	}
	if e.Certs == "" {
		e.Certs = DefaultCertsURL
	}
	return e
}

// Config configures a Provider.
type Config struct {
	APIKey         string
	ProjectID      string
	ServiceAccount *ServiceAccount
	Timeout        time.Duration
	Endpoints      Endpoints
}

// Provider implements models.AuthProvider using the Identity Toolkit REST API.
type Provider struct {
	apiKey    string
	projectID string
	endpoints Endpoints
	client    *http.Client
	tokens    *tokenSource
	now       func() time.Time
}

// NewProvider creates a new Identity Toolkit provider. A service account is
// only needed for refresh-token revocation.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("identity toolkit: api key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	p := &Provider{
		apiKey:    cfg.APIKey,
		projectID: cfg.ProjectID,
		endpoints: cfg.Endpoints.withDefaults(),
		client:    &http.Client{Timeout: timeout},
		now:       time.Now,
	}

	if cfg.ServiceAccount != nil {
		ts, err := newTokenSource(cfg.ServiceAccount, p.client)
		if err != nil {
			return nil, err
		}
		p.tokens = ts
		if p.projectID == "" {
			p.projectID = cfg.ServiceAccount.ProjectID
		}
	}
	return p, nil
}

func (p *Provider) Name() string {
	return "identitytoolkit"
}

type signInResponse struct {
	IDToken      string    `json:"idToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresIn    expiresIn `json:"expiresIn"`
}

func (p *Provider) AuthenticateWithCredentials(ctx context.Context, creds models.Credentials) (*models.TokenPair, error) {
	payload, err := json.Marshal(map[string]any{
		"email":             creds.Email,
		"password":          creds.Password,
		"returnSecureToken": true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling sign-in request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.keyed(p.endpoints.SignIn), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := p.do(req)
	if err != nil {
		slog.Warn("login failed", "error", err.Error())
		return nil, apperr.Unauthorized(err.Error())
	}

	var out signInResponse
	if err := json.Unmarshal(body, &out); err != nil || out.IDToken == "" {
		slog.Warn("login failed", "error", "malformed sign-in response")
		return nil, apperr.Unauthorized(fallbackErrorMessage)
	}

	return &models.TokenPair{
		IDToken:      out.IDToken,
		RefreshToken: out.RefreshToken,
		ExpiresIn:    out.ExpiresIn.seconds(models.DefaultExpiresIn),
	}, nil
}

type refreshResponse struct {
	IDToken      string    `json:"id_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    expiresIn `json:"expires_in"`
}

func (p *Provider) RefreshToken(ctx context.Context, r models.RefreshRequest) (*models.TokenPair, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {r.RefreshToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.keyed(p.endpoints.SecureToken), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := p.do(req)
	if err != nil {
		slog.Warn("token refresh failed", "error", err.Error())
		return nil, apperr.Unauthorized(err.Error())
	}

	var out refreshResponse
	if err := json.Unmarshal(body, &out); err != nil || out.IDToken == "" {
		slog.Warn("token refresh failed", "error", "response carried no id_token")
		return nil, apperr.Unauthorized("Invalid refresh token response")
	}

	refresh := out.RefreshToken
	if refresh == "" {
		refresh = r.RefreshToken
	}
	return &models.TokenPair{
		IDToken:      out.IDToken,
		RefreshToken: refresh,
		ExpiresIn:    out.ExpiresIn.seconds(models.DefaultExpiresIn),
	}, nil
}

// RevokeRefreshTokens sets the account's validSince to now, which invalidates
// every refresh token issued before this moment.
func (p *Provider) RevokeRefreshTokens(ctx context.Context, subject string) error {
	if err := p.revoke(ctx, subject); err != nil {
		slog.Error("logout failed", "subject", subject, "error", err)
		return apperr.Unauthorized("Logout failed").Wrap(err)
	}
	return nil
}

func (p *Provider) revoke(ctx context.Context, subject string) error {
	if p.tokens == nil || p.projectID == "" {
		return ErrNoServiceAccount
	}
	access, err := p.tokens.Token(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]string{
		"localId":    subject,
		"validSince": strconv.FormatInt(p.now().Unix(), 10),
	})
	if err != nil {
		return fmt.Errorf("marshaling revoke request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/projects/%s/accounts:update",
		strings.TrimRight(p.endpoints.AccountsBase, "/"), url.PathEscape(p.projectID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+access)

	if _, err := p.do(req); err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return nil
}

// do executes req and returns the body of a 2xx response. Any failure is
// reduced to a single upstream message.
func (p *Provider) do(req *http.Request) ([]byte, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.New(errorMessage(nil, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.New(errorMessage(nil, err))
	}
	if resp.StatusCode/100 != 2 {
		return nil, errors.New(errorMessage(body, statusError(resp.StatusCode)))
	}
	return body, nil
}

func (p *Provider) keyed(endpoint string) string {
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + "key=" + url.QueryEscape(p.apiKey)
}
