package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestService(t *testing.T, duration time.Duration) *JWTService {
	t.Helper()
	svc, err := NewJWTService(JWTConfig{
		Secret:        "0123456789abcdef0123456789abcdef",
		TokenDuration: duration,
	})
	if err != nil {
		t.Fatalf("NewJWTService: %v", err)
	}
	return svc
}

func TestNewJWTService_RejectsShortSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{Secret: "too-short"})
	if !errors.Is(err, ErrInvalidSecretLength) {
		t.Errorf("Expected ErrInvalidSecretLength, got %v", err)
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestService(t, time.Hour)

	token, err := svc.GenerateToken("alice", "admin")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	if claims.Login != "alice" {
		t.Errorf("Expected login 'alice', got '%s'", claims.Login)
	}
	if !claims.IsAdmin() {
		t.Error("Expected admin claims")
	}
	if claims.Issuer != "labauth" {
		t.Errorf("Expected issuer 'labauth', got '%s'", claims.Issuer)
	}
}

func TestValidateToken_RejectsExpired(t *testing.T) {
	svc := newTestService(t, -time.Minute)

	token, err := svc.GenerateToken("alice", "operator")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := svc.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Expected ErrExpiredToken, got %v", err)
	}
}

func TestValidateToken_RejectsWrongSecret(t *testing.T) {
	svc := newTestService(t, time.Hour)
	other := &JWTService{config: JWTConfig{Secret: "ffffffffffffffffffffffffffffffff", Issuer: "labauth", TokenDuration: time.Hour}}

	token, err := other.GenerateToken("alice", "operator")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := svc.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateToken_RejectsGarbage(t *testing.T) {
	svc := newTestService(t, time.Hour)

	if _, err := svc.ValidateToken("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}
