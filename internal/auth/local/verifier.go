package local

import (
	"context"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kiranshivaraju/tenantcore/internal/apperr"
	"github.com/kiranshivaraju/tenantcore/internal/cache"
	"github.com/kiranshivaraju/tenantcore/pkg/models"
)

// Verifier validates ID tokens signed by Provider.
type Verifier struct {
	cache cache.Cache
	cfg   Config
	now   func() time.Time
}

func NewVerifier(c cache.Cache, cfg Config) (*Verifier, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Verifier{cache: c, cfg: cfg, now: time.Now}, nil
}

func (v *Verifier) VerifyIDToken(ctx context.Context, token string) (*models.Principal, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithAudience(v.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		slog.Warn("token verification failed", "error", err)
		return nil, apperr.Unauthorized("Invalid token").Wrap(err)
	}

	sub, _ := claims.GetSubject()
	if sub == "" {
		return nil, apperr.Unauthorized("Invalid token")
	}

	// Revocation is enforced only when the cutoff can be read.
	cutoff, revoked, err := revokedSince(ctx, v.cache, sub)
	if err != nil {
		slog.Warn("revocation check skipped", "subject", sub, "error", err)
	} else if revoked {
		if iat, ok := issuedAtMillis(claims); !ok || cutoff >= iat {
			return nil, apperr.Unauthorized("Invalid token")
		}
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
