// Package api provides the labauth admin HTTP server.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/openlabtools/labauth/internal/logger"
	"github.com/openlabtools/labauth/pkg/account"
	apiauth "github.com/openlabtools/labauth/pkg/api/auth"
	"github.com/openlabtools/labauth/pkg/api/handlers"
	"github.com/openlabtools/labauth/pkg/api/middleware"
	"github.com/openlabtools/labauth/pkg/auth"
	"github.com/openlabtools/labauth/pkg/provision"
)

// Dependencies are the runtime components the API exposes.
type Dependencies struct {
	// Store is the local account store. May be nil; health endpoints
	// then report not-ready and account routes are not registered.
	Store account.Store

	// Provider is the full authentication chain used for API login and
	// the credential check endpoint.
	Provider auth.Provider

	// Provisioner drives directory lookups and sync triggers.
	Provisioner *provision.Service

	// JWTService issues and validates API tokens. May be nil; all
	// authenticated routes are then not registered.
	JWTService *apiauth.JWTService
}

// NewRouter creates and configures the chi router with all middleware and routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Panic recovery to prevent server crashes
//   - Request timeout to prevent hung requests
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe
//   - POST /api/v1/auth/login - Token issuance (unauthenticated)
//   - GET /api/v1/auth/me - Current caller (token)
//   - GET /api/v1/accounts - List accounts (admin)
//   - GET /api/v1/accounts/{login} - Get account (admin)
//   - GET /api/v1/accounts/{login}/identity - External identity (admin)
//   - POST /api/v1/accounts/{login}/sync - Trigger sync (admin)
//   - GET /api/v1/groups - List groups (admin)
//   - POST /api/v1/check - Credential check (admin)
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	healthHandler := handlers.NewHealthHandler(deps.Store, deps.Provisioner)

	// Health routes - unauthenticated
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	// Root redirect to health for convenience
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	if deps.JWTService == nil || deps.Store == nil {
		return r
	}

	authHandler := handlers.NewAuthHandler(deps.Provider, deps.Store, deps.JWTService)
	accountHandler := handlers.NewAccountHandler(deps.Store)
	provisionHandler := handlers.NewProvisionHandler(deps.Provisioner, deps.Provider)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)

		// Token-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(deps.JWTService))
			r.Get("/auth/me", authHandler.Me)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin())
				r.Get("/accounts", accountHandler.List)
				r.Get("/accounts/{login}", accountHandler.Get)
				r.Get("/accounts/{login}/identity", provisionHandler.Identity)
				r.Post("/accounts/{login}/sync", provisionHandler.Sync)
				r.Get("/groups", accountHandler.ListGroups)
				r.Post("/check", provisionHandler.Check)
			})
		})
	})

	return r
}

// requestLogger is a custom middleware that logs requests using the internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := chimiddleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		// Wrap response writer to capture status code
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)

		logger.Info("API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", duration.String(),
		)
	})
}
