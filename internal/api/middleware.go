// Package api implements the archive REST API using chi.
package api

import (
	"log/slog"
	"net/http"

	"github.com/starford/archiver/internal/auth"
)

// AuthMiddleware resolves the caller with authn and stores the identity in
// the request context. Requests that cannot be authenticated get 401.
func AuthMiddleware(authn auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authn.Authenticate(r)
			if err != nil || id.IsZero() {
				slog.Debug("authentication failed", slog.String("path", r.URL.Path), slog.Any("error", err))
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}
