package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/openlabtools/labauth/pkg/account"
	"github.com/openlabtools/labauth/pkg/account/accounttest"
	apiauth "github.com/openlabtools/labauth/pkg/api/auth"
	"github.com/openlabtools/labauth/pkg/auth"
)

var errStoreDown = errors.New("store down")

// stubProvider answers CheckPassword with a fixed verdict.
type stubProvider struct {
	verdict auth.Verdict
	err     error
}

func (p *stubProvider) HasPassword(ctx context.Context, login string) bool { return false }

func (p *stubProvider) CheckPassword(ctx context.Context, login, password string, readOnly bool) (auth.Verdict, error) {
	return p.verdict, p.err
}

func testJWTService(t *testing.T) *apiauth.JWTService {
	t.Helper()
	svc, err := apiauth.NewJWTService(apiauth.JWTConfig{
		Secret:        "0123456789abcdef0123456789abcdef",
		TokenDuration: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewJWTService: %v", err)
	}
	return svc
}

func seedAccount(t *testing.T, store *accounttest.Store, login string, groupNames ...string) {
	t.Helper()
	ctx := context.Background()

	var ids []string
	for _, name := range groupNames {
		g, err := store.GetGroup(ctx, name)
		if err != nil {
			t.Fatalf("GetGroup(%s): %v", name, err)
		}
		ids = append(ids, g.ID)
	}
	if len(ids) == 0 {
		t.Fatalf("seedAccount needs at least one group")
	}

	if _, err := store.CreateAccount(ctx, &account.Account{Login: login}, ids[0], ids[1:]); err != nil {
		t.Fatalf("CreateAccount(%s): %v", login, err)
	}
}

func doLogin(t *testing.T, handler *AuthHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.Login(w, req)
	return w
}

func TestLogin_ValidCredentials_ReturnsToken(t *testing.T) {
	store := accounttest.New()
	seedAccount(t, store, "alice", account.AuthenticatedGroupName)

	handler := NewAuthHandler(&stubProvider{verdict: auth.VerdictYes}, store, testJWTService(t))
	w := doLogin(t, handler, `{"login":"alice","password":"secret"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp LoginResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.AccessToken == "" {
		t.Error("Expected a non-empty access token")
	}
	if resp.TokenType != "Bearer" {
		t.Errorf("Expected token type 'Bearer', got '%s'", resp.TokenType)
	}
	if resp.Account.Login != "alice" {
		t.Errorf("Expected account login 'alice', got '%s'", resp.Account.Login)
	}
}

func TestLogin_RoleFollowsSystemMembership(t *testing.T) {
	store := accounttest.New()
	seedAccount(t, store, "alice", account.AuthenticatedGroupName)
	seedAccount(t, store, "admin", account.AuthenticatedGroupName, account.SystemGroupName)

	jwtService := testJWTService(t)
	handler := NewAuthHandler(&stubProvider{verdict: auth.VerdictYes}, store, jwtService)

	tests := []struct {
		login string
		role  string
	}{
		{"alice", "operator"},
		{"admin", "admin"},
	}

	for _, tt := range tests {
		w := doLogin(t, handler, `{"login":"`+tt.login+`","password":"secret"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected status %d, got %d", tt.login, http.StatusOK, w.Code)
		}

		var resp LoginResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("%s: failed to decode response: %v", tt.login, err)
		}

		claims, err := jwtService.ValidateToken(resp.AccessToken)
		if err != nil {
			t.Fatalf("%s: token does not validate: %v", tt.login, err)
		}
		if claims.Role != tt.role {
			t.Errorf("%s: expected role '%s', got '%s'", tt.login, tt.role, claims.Role)
		}
	}
}

func TestLogin_RejectedCredentials_Returns401(t *testing.T) {
	store := accounttest.New()
	seedAccount(t, store, "alice", account.AuthenticatedGroupName)

	for _, verdict := range []auth.Verdict{auth.VerdictNo, auth.VerdictUnknown} {
		handler := NewAuthHandler(&stubProvider{verdict: verdict}, store, testJWTService(t))
		w := doLogin(t, handler, `{"login":"alice","password":"wrong"}`)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("verdict %s: expected status %d, got %d", verdict, http.StatusUnauthorized, w.Code)
		}
	}
}

func TestLogin_MissingFields_Returns400(t *testing.T) {
	store := accounttest.New()
	handler := NewAuthHandler(&stubProvider{verdict: auth.VerdictYes}, store, testJWTService(t))

	for _, body := range []string{`{}`, `{"login":"alice"}`, `{"password":"x"}`, `not json`} {
		w := doLogin(t, handler, body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected status %d, got %d", body, http.StatusBadRequest, w.Code)
		}
	}
}
