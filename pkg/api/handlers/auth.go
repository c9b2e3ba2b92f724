package handlers

import (
	"net/http"
	"time"

	apiauth "github.com/openlabtools/labauth/pkg/api/auth"
	"github.com/openlabtools/labauth/pkg/api/middleware"
	"github.com/openlabtools/labauth/pkg/account"
	"github.com/openlabtools/labauth/pkg/auth"
)

// AuthHandler handles authentication-related API endpoints.
//
// API callers authenticate with the same credentials the service itself
// verifies: the login runs through the full provider chain. Members of
// the system group receive the admin role; everyone else is an operator.
type AuthHandler struct {
	provider   auth.Provider
	store      account.Store
	jwtService *apiauth.JWTService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(provider auth.Provider, store account.Store, jwtService *apiauth.JWTService) *AuthHandler {
	return &AuthHandler{
		provider:   provider,
		store:      store,
		jwtService: jwtService,
	}
}

// LoginRequest is the request body for POST /api/v1/auth/login.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// LoginResponse is the response body for POST /api/v1/auth/login.
type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Account     AccountResponse `json:"account"`
}

// Login handles POST /api/v1/auth/login.
// Authenticates credentials through the provider chain and returns a JWT.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.Login == "" || req.Password == "" {
		BadRequest(w, "Login and password are required")
		return
	}

	verdict, err := h.provider.CheckPassword(r.Context(), req.Login, req.Password, false)
	if err != nil {
		InternalServerError(w, "Authentication failed")
		return
	}
	if verdict != auth.VerdictYes {
		Unauthorized(w, "Invalid login or password")
		return
	}

	acct, ok := getAccountOrError(r.Context(), w, h.store, req.Login)
	if !ok {
		return
	}

	role := "operator"
	for _, g := range acct.Groups {
		if g.Name == account.SystemGroupName {
			role = "admin"
			break
		}
	}

	token, err := h.jwtService.GenerateToken(req.Login, role)
	if err != nil {
		InternalServerError(w, "Failed to generate token")
		return
	}

	WriteJSONOK(w, LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   time.Now().Add(h.jwtService.TokenDuration()),
		Account:     accountToResponse(acct),
	})
}

// Me handles GET /api/v1/auth/me.
// Returns the current authenticated caller's account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		Unauthorized(w, "Authentication required")
		return
	}

	acct, ok := getAccountOrError(r.Context(), w, h.store, claims.Login)
	if !ok {
		return
	}

	WriteJSONOK(w, accountToResponse(acct))
}
