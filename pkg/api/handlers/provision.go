package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openlabtools/labauth/pkg/auth"
	"github.com/openlabtools/labauth/pkg/directory"
	"github.com/openlabtools/labauth/pkg/provision"
)

// ProvisionHandler handles provisioning and diagnostics endpoints.
type ProvisionHandler struct {
	provisioner *provision.Service
	provider    auth.Provider
}

// NewProvisionHandler creates a new ProvisionHandler.
func NewProvisionHandler(provisioner *provision.Service, provider auth.Provider) *ProvisionHandler {
	return &ProvisionHandler{provisioner: provisioner, provider: provider}
}

// IdentityResponse describes an account's external directory identity.
type IdentityResponse struct {
	Login       string `json:"login"`
	FirstName   string `json:"first_name,omitempty"`
	MiddleName  string `json:"middle_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Institution string `json:"institution,omitempty"`
	Unit        string `json:"unit,omitempty"`
	UnitName    string `json:"unit_name,omitempty"`
}

// Identity handles GET /api/v1/accounts/{login}/identity.
// Looks up the account's identity in the external directory (admin only).
func (h *ProvisionHandler) Identity(w http.ResponseWriter, r *http.Request) {
	login := chi.URLParam(r, "login")
	if login == "" {
		BadRequest(w, "Login is required")
		return
	}

	if h.provisioner == nil || !h.provisioner.Enabled() {
		ServiceUnavailable(w, "Provisioning is disabled")
		return
	}

	identity, err := h.provisioner.FindExternalIdentity(r.Context(), login)
	if err != nil {
		if directory.IsRemote(err) {
			ServiceUnavailable(w, "Directory unreachable")
			return
		}
		InternalServerError(w, "Directory lookup failed")
		return
	}
	if identity == nil {
		NotFound(w, "No active directory identity for this login")
		return
	}

	WriteJSONOK(w, identityToResponse(identity))
}

// Sync handles POST /api/v1/accounts/{login}/sync.
// Runs a full synchronization pass for the account (admin only).
func (h *ProvisionHandler) Sync(w http.ResponseWriter, r *http.Request) {
	login := chi.URLParam(r, "login")
	if login == "" {
		BadRequest(w, "Login is required")
		return
	}

	if h.provisioner == nil || !h.provisioner.Enabled() {
		ServiceUnavailable(w, "Provisioning is disabled")
		return
	}

	if err := h.provisioner.SynchronizeAccount(r.Context(), login); err != nil {
		switch {
		case errors.Is(err, provision.ErrNotFoundLocally):
			NotFound(w, "Account not found")
		case directory.IsRemote(err):
			ServiceUnavailable(w, "Directory unreachable")
		default:
			InternalServerError(w, "Synchronization failed")
		}
		return
	}

	WriteNoContent(w)
}

// CheckRequest is the request body for POST /api/v1/check.
type CheckRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// CheckResponse is the response body for POST /api/v1/check.
type CheckResponse struct {
	Login   string `json:"login"`
	Verdict string `json:"verdict"`
}

// Check handles POST /api/v1/check.
// Runs credentials through the provider chain and reports the verdict
// (admin only). The check behaves like a real login and may create or
// synchronize the local account as a side effect.
func (h *ProvisionHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.Login == "" {
		BadRequest(w, "Login is required")
		return
	}

	verdict, err := h.provider.CheckPassword(r.Context(), req.Login, req.Password, false)
	if err != nil {
		InternalServerError(w, "Credential check failed")
		return
	}

	WriteJSONOK(w, CheckResponse{Login: req.Login, Verdict: verdict.String()})
}

// identityToResponse converts a directory identity for API output.
func identityToResponse(identity *directory.UserWithUnit) IdentityResponse {
	resp := IdentityResponse{
		Login:       identity.User.Login,
		FirstName:   identity.User.FirstName,
		MiddleName:  identity.User.MiddleName,
		LastName:    identity.User.LastName,
		Email:       identity.User.Email,
		Institution: identity.User.Institution,
	}
	if identity.Unit != nil {
		resp.Unit = identity.Unit.Key
		resp.UnitName = identity.Unit.Name
	}
	return resp
}
