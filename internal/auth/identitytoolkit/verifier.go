package identitytoolkit

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gocache "github.com/patrickmn/go-cache"

	"github.com/kiranshivaraju/tenantcore/internal/apperr"
	"github.com/kiranshivaraju/tenantcore/pkg/models"
)

const (
	DefaultCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

	issuerPrefix     = "https://securetoken.google.com/"
	certsCacheKey    = "certs"
	defaultCertsTTL  = time.Hour
	invalidTokenText = "Invalid token"
)

var maxAgePattern = regexp.MustCompile(`max-age=(\d+)`)

// Verifier validates Identity Toolkit ID tokens against Google's rotating
// signing certificates.
type Verifier struct {
	projectID string
	certsURL  string
	client    *http.Client
	certs     *gocache.Cache

	// serializes certificate downloads
	fetchMu sync.Mutex
}

// NewVerifier creates a verifier for tokens minted for projectID.
func NewVerifier(projectID string, cfg Config) (*Verifier, error) {
	if projectID == "" {
		return nil, fmt.Errorf("identity toolkit: project id is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Verifier{
		projectID: projectID,
		certsURL:  cfg.Endpoints.withDefaults().Certs,
		client:    &http.Client{Timeout: timeout},
		certs:     gocache.New(defaultCertsTTL, 10*time.Minute),
	}, nil
}

func (v *Verifier) VerifyIDToken(ctx context.Context, token string) (*models.Principal, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}
		return v.publicKey(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.projectID),
		jwt.WithIssuer(issuerPrefix+v.projectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		slog.Warn("token verification failed", "error", err)
		return nil, apperr.Unauthorized(invalidTokenText).Wrap(err)
	}

	sub, _ := claims.GetSubject()
	if sub == "" {
		return nil, apperr.Unauthorized(invalidTokenText)
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)

	return &models.Principal{
		Subject: sub,
		Email:   email,
		Role:    models.Role(role),
		Claims:  claims,
	}, nil
}

func (v *Verifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	keys, err := v.keys(ctx)
	if err != nil {
		return nil, err
	}
	key, ok := keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	return key, nil
}

func (v *Verifier) keys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	if cached, ok := v.certs.Get(certsCacheKey); ok {
		return cached.(map[string]*rsa.PublicKey), nil
	}

	v.fetchMu.Lock()
	defer v.fetchMu.Unlock()
	if cached, ok := v.certs.Get(certsCacheKey); ok {
		return cached.(map[string]*rsa.PublicKey), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.certsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building certs request: %w", err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching certs: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading certs: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetching certs: status %d", ErrUpstream, resp.StatusCode)
	}

	var pems map[string]string
	if err := json.Unmarshal(body, &pems); err != nil {
		return nil, fmt.Errorf("decoding certs: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(pems))
	for kid, pem := range pems {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			return nil, fmt.Errorf("parsing cert %q: %w", kid, err)
		}
		keys[kid] = key
	}

	v.certs.Set(certsCacheKey, keys, cacheTTL(resp.Header.Get("Cache-Control")))
	return keys, nil
}

func cacheTTL(cacheControl string) time.Duration {
	m := maxAgePattern.FindStringSubmatch(cacheControl)
	if m == nil {
		return defaultCertsTTL
	}
	secs, err := strconv.Atoi(m[1])
	if err != nil || secs <= 0 {
		return defaultCertsTTL
	}
	return time.Duration(secs) * time.Second
}
