package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kiranshivaraju/tenantcore/internal/api/handler"
	mw "github.com/kiranshivaraju/tenantcore/internal/api/middleware"
	"github.com/kiranshivaraju/tenantcore/internal/api/response"
	"github.com/kiranshivaraju/tenantcore/internal/api/route"
	"github.com/kiranshivaraju/tenantcore/internal/metrics"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth          *mw.Auth
	AuthRateLimit *mw.RateLimit
	Tenants       mw.TenantLookup
	Metrics       *metrics.Metrics

	// TrustProxy mounts chi's RealIP so rate limits key on the forwarded
	// client address instead of the proxy's.
	TrustProxy bool

	HealthHandler http.HandlerFunc
	AuthHandler   *handler.AuthHandler
	TenantHandler *handler.TenantHandler

	// Resources are tenant-scoped route tables. Each is mounted twice: under
	// /t/{slug} and at the top level with the tenant taken from X-Tenant.
	Resources [][]route.Route
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(mw.Instrument(deps.Metrics))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public health check
		r.Get("/health", orNotImplemented(deps.HealthHandler))

		if deps.AuthHandler != nil {
			r.Route("/auth", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					if deps.AuthRateLimit != nil {
						r.Use(deps.AuthRateLimit.Limit)
					}
					r.Post("/login", deps.AuthHandler.Login)
					r.Post("/refresh", deps.AuthHandler.Refresh)
				})
				r.With(deps.Auth.Authenticate).Post("/logout", deps.AuthHandler.Logout)
			})
		}

		if deps.TenantHandler != nil {
			r.Route("/tenants", func(r chi.Router) {
				route.Mount(r, deps.TenantHandler.PublicRoutes())

				// Admin routes
				r.Group(func(r chi.Router) {
					r.Use(deps.Auth.Authenticate)
					route.Mount(r, deps.TenantHandler.AdminRoutes())
				})
			})
		}

		// Tenant-scoped resources
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.Authenticate)

			r.Route("/t/{slug}", func(r chi.Router) {
				r.Use(mw.ResolveTenant(deps.Tenants))
				for _, routes := range deps.Resources {
					route.Mount(r, routes)
				}
			})

			r.Group(func(r chi.Router) {
				r.Use(mw.ResolveTenant(deps.Tenants))
				for _, routes := range deps.Resources {
					route.Mount(r, routes)
				}
			})
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
