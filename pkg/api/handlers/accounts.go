package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openlabtools/labauth/pkg/account"
)

// AccountHandler handles account and group inspection endpoints.
type AccountHandler struct {
	store account.Store
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(store account.Store) *AccountHandler {
	return &AccountHandler{store: store}
}

// AccountResponse is a sanitized account representation for API responses.
type AccountResponse struct {
	ID          string   `json:"id"`
	Login       string   `json:"login"`
	FirstName   string   `json:"first_name,omitempty"`
	MiddleName  string   `json:"middle_name,omitempty"`
	LastName    string   `json:"last_name,omitempty"`
	Email       string   `json:"email,omitempty"`
	Institution string   `json:"institution,omitempty"`
	Protected   bool     `json:"protected"`
	Groups      []string `json:"groups"`
}

// GroupResponse is a group representation for API responses.
type GroupResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Permissions string `json:"permissions"`
	System      bool   `json:"system"`
}

// List handles GET /api/v1/accounts.
// Lists all local accounts (admin only).
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.store.ListAccounts(r.Context())
	if err != nil {
		InternalServerError(w, "Failed to list accounts")
		return
	}

	response := make([]AccountResponse, len(accounts))
	for i, a := range accounts {
		response[i] = accountToResponse(a)
	}

	WriteJSONOK(w, response)
}

// Get handles GET /api/v1/accounts/{login}.
// Gets an account by login (admin only).
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	login := chi.URLParam(r, "login")
	if login == "" {
		BadRequest(w, "Login is required")
		return
	}

	acct, ok := getAccountOrError(r.Context(), w, h.store, login)
	if !ok {
		return
	}

	WriteJSONOK(w, accountToResponse(acct))
}

// ListGroups handles GET /api/v1/groups.
// Lists all local groups (admin only).
func (h *AccountHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.store.ListGroups(r.Context())
	if err != nil {
		InternalServerError(w, "Failed to list groups")
		return
	}

	response := make([]GroupResponse, len(groups))
	for i, g := range groups {
		response[i] = GroupResponse{
			ID:          g.ID,
			Name:        g.Name,
			Permissions: string(g.Permissions),
			System:      g.System,
		}
	}

	WriteJSONOK(w, response)
}

// accountToResponse converts an Account to an AccountResponse for API output.
// Group names keep membership order: the first entry is the default group.
func accountToResponse(a *account.Account) AccountResponse {
	groups := make([]string, len(a.Groups))
	for i, g := range a.Groups {
		groups[i] = g.Name
	}
	return AccountResponse{
		ID:          a.ID,
		Login:       a.Login,
		FirstName:   a.FirstName,
		MiddleName:  a.MiddleName,
		LastName:    a.LastName,
		Email:       a.Email,
		Institution: a.Institution,
		Protected:   a.Protected,
		Groups:      groups,
	}
}
