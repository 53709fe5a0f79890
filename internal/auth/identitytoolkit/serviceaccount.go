package identitytoolkit

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultOAuthTokenURL = "https://oauth2.googleapis.com/token"
	jwtBearerGrantType   = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	adminScopes          = "https://www.googleapis.com/auth/identitytoolkit https://www.googleapis.com/auth/firebase"
	tokenRefreshMargin   = time.Minute
)

// ServiceAccount is the subset of a Google service-account key file used to
// call the admin endpoints.
type ServiceAccount struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	TokenURI     string `json:"token_uri"`
}

// ParseServiceAccountBase64 decodes a base64-encoded service-account JSON key.
func ParseServiceAccountBase64(encoded string) (*ServiceAccount, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode service account: %w", err)
	}
	var sa ServiceAccount
	if err := json.Unmarshal(raw, &sa); err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, fmt.Errorf("parse service account: client_email and private_key are required")
	}
	if sa.TokenURI == "" {
		sa.TokenURI = defaultOAuthTokenURL
	}
	return &sa, nil
}

// tokenSource exchanges a signed service-account assertion for an OAuth
// access token and reuses it until shortly before expiry.
type tokenSource struct {
	sa     *ServiceAccount
	key    *rsa.PrivateKey
	client *http.Client
	now    func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

func newTokenSource(sa *ServiceAccount, client *http.Client) (*tokenSource, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(sa.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	return &tokenSource{sa: sa, key: key, client: client, now: time.Now}, nil
}

func (ts *tokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := ts.now()
	if ts.token != "" && now.Add(tokenRefreshMargin).Before(ts.expiry) {
		return ts.token, nil
	}

	assertion, err := ts.assertion(now)
	if err != nil {
		return "", err
	}

	form := url.Values{
		"grant_type": {jwtBearerGrantType},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.sa.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("%w: token exchange: %s", ErrUpstream, errorMessage(body, statusError(resp.StatusCode)))
	}

	var out struct {
		AccessToken string    `json:"access_token"`
		ExpiresIn   expiresIn `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.AccessToken == "" {
		return "", fmt.Errorf("%w: token exchange returned no access token", ErrUpstream)
	}

	ts.token = out.AccessToken
	ts.expiry = now.Add(time.Duration(out.ExpiresIn.seconds(3600)) * time.Second)
	return ts.token, nil
}

func (ts *tokenSource) assertion(now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iss":   ts.sa.ClientEmail,
		"sub":   ts.sa.ClientEmail,
		"aud":   ts.sa.TokenURI,
		"scope": adminScopes,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if ts.sa.PrivateKeyID != "" {
		tok.Header["kid"] = ts.sa.PrivateKeyID
	}
	signed, err := tok.SignedString(ts.key)
	if err != nil {
		return "", fmt.Errorf("sign assertion: %w", err)
	}
	return signed, nil
}
