package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openlabtools/labauth/pkg/account"
	"github.com/openlabtools/labauth/pkg/account/accounttest"
)

func TestListAccounts_ReturnsSeededAndCreated(t *testing.T) {
	store := accounttest.New()
	seedAccount(t, store, "alice", account.AuthenticatedGroupName)

	handler := NewAccountHandler(store)
	req := httptest.NewRequest("GET", "/api/v1/accounts", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp []AccountResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	// root and guest are seeded; alice is created above.
	if len(resp) != 3 {
		t.Fatalf("Expected 3 accounts, got %d", len(resp))
	}

	var alice *AccountResponse
	for i := range resp {
		if resp[i].Login == "alice" {
			alice = &resp[i]
		}
	}
	if alice == nil {
		t.Fatal("Expected to find account 'alice'")
	}
	if len(alice.Groups) != 1 || alice.Groups[0] != account.AuthenticatedGroupName {
		t.Errorf("Expected groups [users], got %v", alice.Groups)
	}
	if alice.Protected {
		t.Error("Expected alice not to be protected")
	}
}

func TestListAccounts_StoreError_Returns500(t *testing.T) {
	store := accounttest.New()
	store.Err = errStoreDown

	handler := NewAccountHandler(store)
	req := httptest.NewRequest("GET", "/api/v1/accounts", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
}

func TestListGroups_ReturnsUniversalGroups(t *testing.T) {
	store := accounttest.New()

	handler := NewAccountHandler(store)
	req := httptest.NewRequest("GET", "/api/v1/groups", nil)
	w := httptest.NewRecorder()

	handler.ListGroups(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp []GroupResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	names := make(map[string]bool)
	for _, g := range resp {
		names[g.Name] = g.System
	}
	for _, name := range []string{account.SystemGroupName, account.AuthenticatedGroupName} {
		system, ok := names[name]
		if !ok {
			t.Errorf("Expected group '%s' to be listed", name)
			continue
		}
		if !system {
			t.Errorf("Expected group '%s' to be marked as system", name)
		}
	}
}
