package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/openlabtools/labauth/pkg/account"
)

// decodeJSONBody decodes a JSON request body into the provided pointer.
// Returns true if successful, false if decoding fails (error response is written automatically).
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		BadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// getAccountOrError fetches an account by login and handles common errors.
// Returns the account and true if successful.
// Returns nil and false if the account is unknown (writes 404) or on error (writes 500).
func getAccountOrError(ctx context.Context, w http.ResponseWriter, store account.Store, login string) (*account.Account, bool) {
	acct, err := store.FindAccountByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			NotFound(w, "Account not found")
			return nil, false
		}
		InternalServerError(w, "Failed to get account")
		return nil, false
	}
	return acct, true
}
