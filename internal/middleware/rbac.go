package middleware

import (
	"log/slog"
	"net/http"

	"docflow/internal/models"
)

// RequireAnyRole rejects actors that carry none of roles. It must run after
// Authenticate.
func RequireAnyRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := GetActor(r)
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "User not authenticated")
				return
			}

			if !actor.HasRole(roles...) {
				slog.Warn("Role check failed",
					"user_id", actor.ID,
					"role", actor.Role,
					"path", r.URL.Path,
				)
				respondWithError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
