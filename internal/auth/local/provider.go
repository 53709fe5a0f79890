// Package local implements the auth ports without an external identity
// service. Accounts live in the database, ID tokens are HS256 JWTs and
// refresh tokens are opaque values tracked in the cache.
package local

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kiranshivaraju/tenantcore/internal/apperr"
	"github.com/kiranshivaraju/tenantcore/internal/cache"
	"github.com/kiranshivaraju/tenantcore/internal/store"
	"github.com/kiranshivaraju/tenantcore/pkg/models"
)

const (
	MinSecretLen = 32

	// issuedAtMillisClaim carries the issue time at millisecond precision so
	// that revocation cutoffs are not rounded to whole seconds.
	issuedAtMillisClaim = "iat_ms"

	invalidCredentials  = "Invalid email or password"
	invalidRefreshToken = "Invalid refresh token"
)

// AccountStore is the account subset of store.Store.
type AccountStore interface {
	CreateAccount(ctx context.Context, a *models.Account) error
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// Config configures the local provider and verifier.
type Config struct {
	Secret          []byte
	Issuer          string
	IDTokenTTL      time.Duration
	RefreshTokenTTL time.Duration
}

func (c Config) validate() error {
	if len(c.Secret) < MinSecretLen {
		return fmt.Errorf("local auth: secret must be at least %d bytes", MinSecretLen)
	}
	if c.Issuer == "" {
		return fmt.Errorf("local auth: issuer is required")
	}
	if c.IDTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("local auth: token lifetimes must be positive")
	}
	return nil
}

type refreshRecord struct {
	Subject        string `json:"sub"`
	IssuedAtMillis int64  `json:"iat_ms"`
}

// Provider implements models.AuthProvider against local accounts.
type Provider struct {
	accounts AccountStore
	cache    cache.Cache
	cfg      Config
	now      func() time.Time
}

func NewProvider(accounts AccountStore, c cache.Cache, cfg Config) (*Provider, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Provider{accounts: accounts, cache: c, cfg: cfg, now: time.Now}, nil
}

func (p *Provider) Name() string {
	return "local"
}

func (p *Provider) AuthenticateWithCredentials(ctx context.Context, creds models.Credentials) (*models.TokenPair, error) {
	account, err := p.accounts.GetAccountByEmail(ctx, normalizeEmail(creds.Email))
	if errors.Is(err, store.ErrNotFound) {
		slog.Warn("login failed", "error", "unknown account")
		return nil, apperr.Unauthorized(invalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("loading account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(creds.Password)); err != nil {
		slog.Warn("login failed", "account_id", account.ID, "error", "password mismatch")
		return nil, apperr.Unauthorized(invalidCredentials)
	}

	now := p.now()
	idToken, err := p.signIDToken(account, now)
	if err != nil {
		return nil, err
	}
	refresh, err := p.issueRefreshToken(ctx, account.ID.String(), now)
	if err != nil {
		return nil, err
	}

	return &models.TokenPair{
		IDToken:      idToken,
		RefreshToken: refresh,
		ExpiresIn:    int(p.cfg.IDTokenTTL.Seconds()),
	}, nil
}

// RefreshToken mints a new ID token. The refresh token itself is not
// rotated and is echoed back unchanged.
func (p *Provider) RefreshToken(ctx context.Context, r models.RefreshRequest) (*models.TokenPair, error) {
	key := cache.RefreshTokenKey(hashToken(r.RefreshToken))
	raw, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("loading refresh token: %w", err)
	}
	if !ok {
		slog.Warn("token refresh failed", "error", "unknown refresh token")
		return nil, apperr.Unauthorized(invalidRefreshToken)
	}

	var rec refreshRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decoding refresh token: %w", err)
	}

	cutoff, revoked, err := revokedSince(ctx, p.cache, rec.Subject)
	if err != nil {
		return nil, err
	}
	if revoked && cutoff >= rec.IssuedAtMillis {
		if err := p.cache.Delete(ctx, key); err != nil {
			slog.Warn("failed to drop revoked refresh token", "subject", rec.Subject, "error", err)
		}
		slog.Warn("token refresh failed", "subject", rec.Subject, "error", "refresh token revoked")
		return nil, apperr.Unauthorized(invalidRefreshToken)
	}

	id, err := uuid.Parse(rec.Subject)
	if err != nil {
		return nil, apperr.Unauthorized(invalidRefreshToken)
	}
	account, err := p.accounts.GetAccount(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Unauthorized(invalidRefreshToken)
	}
	if err != nil {
		return nil, fmt.Errorf("loading account: %w", err)
	}

	idToken, err := p.signIDToken(account, p.now())
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{
		IDToken:      idToken,
		RefreshToken: r.RefreshToken,
		ExpiresIn:    int(p.cfg.IDTokenTTL.Seconds()),
	}, nil
}

// RevokeRefreshTokens records the current time, in unix milliseconds, as the
// subject's cutoff. Refresh and ID tokens issued at or before it are rejected
// from then on.
func (p *Provider) RevokeRefreshTokens(ctx context.Context, subject string) error {
	ttl := max(p.cfg.RefreshTokenTTL, p.cfg.IDTokenTTL)
	now := strconv.FormatInt(p.now().UnixMilli(), 10)
	if err := p.cache.Set(ctx, cache.RevokedSinceKey(subject), []byte(now), ttl); err != nil {
		slog.Error("logout failed", "subject", subject, "error", err)
		return apperr.Unauthorized("Logout failed").Wrap(err)
	}
	return nil
}

func (p *Provider) signIDToken(a *models.Account, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iss":   p.cfg.Issuer,
		"aud":   p.cfg.Issuer,
		"sub":   a.ID.String(),
		"email": a.Email,
		"role":  string(a.Role),
		"iat":   now.Unix(),
		"exp":   now.Add(p.cfg.IDTokenTTL).Unix(),

		issuedAtMillisClaim: now.UnixMilli(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tok.Header["typ"] = "JWT"
	signed, err := tok.SignedString(p.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("signing id token: %w", err)
	}
	return signed, nil
}

func (p *Provider) issueRefreshToken(ctx context.Context, subject string, now time.Time) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	rec, err := json.Marshal(refreshRecord{Subject: subject, IssuedAtMillis: now.UnixMilli()})
	if err != nil {
		return "", fmt.Errorf("encoding refresh token: %w", err)
	}
	if err := p.cache.Set(ctx, cache.RefreshTokenKey(hashToken(token)), rec, p.cfg.RefreshTokenTTL); err != nil {
		return "", fmt.Errorf("storing refresh token: %w", err)
	}
	return token, nil
}

// CreateAccount registers a local account with a bcrypt-hashed password.
func CreateAccount(ctx context.Context, accounts AccountStore, email, password string, role models.Role) (*models.Account, error) {
	email = normalizeEmail(email)
	if err := (models.Credentials{Email: email, Password: password}).Validate(); err != nil {
		return nil, apperr.BadRequest(err.Error())
	}
	if !role.Valid() {
		return nil, apperr.BadRequest("role must be one of admin, staff, customer")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	a := &models.Account{Email: email, PasswordHash: string(hash), Role: role}
	if err := accounts.CreateAccount(ctx, a); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, apperr.BadRequest("Account already exists")
		}
		return nil, err
	}
	return a, nil
}

// revokedSince returns the subject's cutoff in unix milliseconds and whether
// one has been recorded.
func revokedSince(ctx context.Context, c cache.Cache, subject string) (int64, bool, error) {
	raw, ok, err := c.Get(ctx, cache.RevokedSinceKey(subject))
	if err != nil {
		return 0, false, fmt.Errorf("loading revocation: %w", err)
	}
	if !ok {
		return 0, false, nil
	}
	ts, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parsing revocation: %w", err)
	}
	return ts, true, nil
}

// issuedAtMillis reads the millisecond issue time of an ID token, falling
// back to the whole-second iat claim.
func issuedAtMillis(claims jwt.MapClaims) (int64, bool) {
	if ms, ok := claims[issuedAtMillisClaim].(float64); ok {
		return int64(ms), true
	}
	iat, err := claims.GetIssuedAt()
	if err != nil || iat == nil {
		return 0, false
	}
	return iat.UnixMilli(), true
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
