package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"tvtracker/internal/auth"
)

// RequireToken validates the username/token query parameters against the
// token service and injects the authenticated username into the request
// context. Every protected route passes through here; handlers behind it
// never re-check the token.
func RequireToken(tokens *auth.Service, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username := r.URL.Query().Get("username")
			token := r.URL.Query().Get("token")
			if username == "" || token == "" {
				unauthorized(w)
				return
			}

			ok, err := tokens.Validate(r.Context(), token, username)
			if err != nil {
				// A token store fault is not an authorization negative.
				log.Error("token validation", zap.Error(err))
				fail(w, http.StatusInternalServerError, "internal error")
				return
			}
			if !ok {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), "username", username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	fail(w, http.StatusUnauthorized, "invalid token")
}

func fail(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
