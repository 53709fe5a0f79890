package handler

import (
	"context"
	"encoding/json"
	"net/http"

	mw "github.com/kiranshivaraju/tenantcore/internal/api/middleware"
	"github.com/kiranshivaraju/tenantcore/internal/api/response"
	"github.com/kiranshivaraju/tenantcore/internal/apperr"
	"github.com/kiranshivaraju/tenantcore/internal/auth"
	"github.com/kiranshivaraju/tenantcore/pkg/models"
)

// AuthService defines the interface the auth handler depends on.
type AuthService interface {
	Login(ctx context.Context, creds models.Credentials) (*models.TokenPair, error)
	Refresh(ctx context.Context, req models.RefreshRequest) (*models.TokenPair, error)
	Logout(ctx context.Context, subject string) (*auth.LogoutResult, error)
}

// AuthHandler serves /api/v1/auth.
type AuthHandler struct {
	svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if !decodeValid(w, r, &creds) {
		return
	}

	pair, err := h.svc.Login(r.Context(), creds)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, pair)
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.FromError(w, r, apperr.BadRequest("Invalid JSON body"))
		return
	}

	pair, err := h.svc.Refresh(r.Context(), req)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, pair)
}

// Logout handles POST /auth/logout. It must sit behind Authenticate.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	principal, ok := mw.GetPrincipal(r)
	if !ok {
		response.FromError(w, r, apperr.Unauthorized("User not authenticated"))
		return
	}

	res, err := h.svc.Logout(r.Context(), principal.Subject)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, res)
}

type validator interface {
	Validate() error
}

// decodeValid reads a JSON body into v and validates it.
func decodeValid(w http.ResponseWriter, r *http.Request, v validator) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.FromError(w, r, apperr.BadRequest("Invalid JSON body"))
		return false
	}
	if err := v.Validate(); err != nil {
		response.FromError(w, r, apperr.BadRequest(err.Error()))
		return false
	}
	return true
}
