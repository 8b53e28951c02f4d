package handler

import (
	"context"
	"net/http"

	"github.com/efreitasn/knightsmarket/internal/auth"
)

type callerKey struct{}

// requireCaller rejects requests without a valid bearer token and stores
// the token's account in the request context.
func requireCaller(v *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				WriteError(w, http.StatusUnauthorized, "missing_caller", "A valid bearer token is required")
				return
			}
			account, err := v.Verify(token)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "invalid_credentials", "A valid bearer token is required")
				return
			}
			ctx := context.WithValue(r.Context(), callerKey{}, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// caller returns the authenticated account, or "" outside requireCaller.
func caller(r *http.Request) string {
	account, _ := r.Context().Value(callerKey{}).(string)
	return account
}
