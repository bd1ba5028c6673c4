package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"urbanlens/internal/auth"
)

func serveWithToken(t *testing.T, token string) *httptest.ResponseRecorder {
	t.Helper()
	handler := Auth("secret")(RequireOperator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rr, req)
	return rr
}

func TestRequireOperatorRejectsPlainAccount(t *testing.T) {
	token, err := auth.NewToken("secret", "account-1", "", time.Minute)
	if err != nil {
		t.Fatalf("failed to create token: %v", err)
	}
	rr := serveWithToken(t, token)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestRequireOperatorAllowsOperator(t *testing.T) {
	token, err := auth.NewToken("secret", "ops-1", auth.RoleOperator, time.Minute)
	if err != nil {
		t.Fatalf("failed to create token: %v", err)
	}
	rr := serveWithToken(t, token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRequireOperatorUnauthenticated(t *testing.T) {
	handler := RequireOperator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not be called")
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
