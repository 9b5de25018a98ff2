package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vasapolrittideah/onboarding-api/internal/payload"
	"github.com/vasapolrittideah/onboarding-api/internal/token"
)

type contextKey struct{}

var userIDKey = contextKey{}

// RequireAccessToken authenticates requests with a bearer access token and
// stores the verified user ID on the request context.
func RequireAccessToken(issuer *token.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				unauthorized(w)
				return
			}

			userID, err := issuer.Verify(parts[1], token.KindAccess)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the user ID stored by RequireAccessToken.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(payload.ErrorResponse{Error: "unauthorized"})
}
