package middleware

import (
	"net/http"

	"urbanlens/internal/auth"
)

// RequireOperator gates platform-operations endpoints (withdrawal processing,
// booking approval and force-cancel) on the operator role claim.
func RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := AccountIDFromContext(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		role, _ := RoleFromContext(r.Context())
		if role != auth.RoleOperator {
			http.Error(w, "operator privileges required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
