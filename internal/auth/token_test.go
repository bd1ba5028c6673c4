package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := NewToken("test-secret", "account-1", RoleOperator, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claims, err := ParseToken("test-secret", token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.AccountID != "account-1" || claims.Role != RoleOperator {
		t.Fatalf("unexpected claims: %#v", claims)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := NewToken("test-secret", "account-1", "", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseToken("other-secret", token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseTokenExpired(t *testing.T) {
	token, err := NewToken("test-secret", "account-1", "", -time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseToken("test-secret", token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestParseTokenGarbage(t *testing.T) {
	if _, err := ParseToken("test-secret", "not-a-token"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
