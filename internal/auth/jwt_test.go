package auth

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateAndValidateAccessToken(t *testing.T) {
	mgr := NewJWTManager("test-secret-key-123")
	token, err := mgr.GenerateAccessToken("user-42")
	if err != nil {
		t.Fatalf("generate access token: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := mgr.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.UserID != "user-42" {
		t.Errorf("expected user_id=user-42, got %s", claims.UserID)
	}
	if claims.Subject != "user-42" {
		t.Errorf("expected subject=user-42, got %s", claims.Subject)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	mgr1 := NewJWTManager("secret-one")
	mgr2 := NewJWTManager("secret-two")

	token, err := mgr1.GenerateAccessToken("user-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	_, err = mgr2.ValidateToken(token)
	if err == nil {
		t.Error("expected validation to fail with wrong secret")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	_, err := mgr.ValidateToken("not-a-jwt")
	if err == nil {
		t.Error("expected error for garbage token")
	}
	_, err = mgr.ValidateToken("")
	if !errors.Is(err, ErrMissingToken) {
		t.Errorf("expected ErrMissingToken for empty token, got %v", err)
	}
}

func TestExpiredToken(t *testing.T) {
	mgr := NewJWTManager("test-secret").WithExpiry(-1 * time.Second)
	token, err := mgr.GenerateAccessToken("user-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	_, err = mgr.ValidateToken(token)
	if err == nil {
		t.Error("expected error for expired token")
	}
}

func TestDifferentUsersGetDifferentTokens(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	t1, _ := mgr.GenerateAccessToken("alice")
	t2, _ := mgr.GenerateAccessToken("bob")
	if t1 == t2 {
		t.Error("different users should get different tokens")
	}
}

func TestTokenSourceSignsValidTokens(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	tok, err := mgr.TokenSource("proai-bot").Token()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok.TokenType != "Bearer" {
		t.Errorf("expected Bearer token type, got %s", tok.TokenType)
	}
	if !tok.Valid() {
		t.Error("expected a valid, unexpired token")
	}
	claims, err := mgr.ValidateToken(tok.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "proai-bot" {
		t.Errorf("expected user_id=proai-bot, got %s", claims.UserID)
	}
}

func TestTokenSourceReusesUnexpiredToken(t *testing.T) {
	src := NewJWTManager("test-secret").TokenSource("proai-bot")
	t1, err := src.Token()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	t2, err := src.Token()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if t1.AccessToken != t2.AccessToken {
		t.Error("expected the cached token to be reused")
	}
}
