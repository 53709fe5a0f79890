package middleware

import (
	"net/http"
	"strings"

	"github.com/kiranshivaraju/tenantcore/internal/api/response"
	"github.com/kiranshivaraju/tenantcore/internal/apperr"
	"github.com/kiranshivaraju/tenantcore/pkg/models"
)

const bearerPrefix = "Bearer "

// Auth provides bearer-token authentication backed by a TokenVerifier.
type Auth struct {
	verifier models.TokenVerifier
}

// NewAuth creates a new Auth middleware.
func NewAuth(v models.TokenVerifier) *Auth {
	return &Auth{verifier: v}
}

// Authenticate verifies the ID token from the Authorization header and stores
// the resulting principal in the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			response.FromError(w, r, apperr.Unauthorized("No authorization header provided"))
			return
		}

		token := extractToken(header)
		if token == "" {
			response.FromError(w, r, apperr.Unauthorized("Invalid token format"))
			return
		}

		principal, err := a.verifier.VerifyIDToken(r.Context(), token)
		if err != nil {
			response.FromError(w, r, asUnauthorized(err))
			return
		}

		next.ServeHTTP(w, r.WithContext(SetPrincipal(r.Context(), principal)))
	})
}

// extractToken accepts "Bearer <token>" (any case) or a bare token.
func extractToken(header string) string {
	if len(header) >= len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}
	return strings.TrimSpace(header)
}

// asUnauthorized keeps verifier failures inside the unauthorized category so
// that no internal detail reaches the client.
func asUnauthorized(err error) error {
	if apperr.Is(err, apperr.KindUnauthorized) {
		return err
	}
	return apperr.Unauthorized("Invalid token").Wrap(err)
}
