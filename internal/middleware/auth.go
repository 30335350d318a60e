package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"docflow/internal/auth"
	"docflow/internal/models"
	"docflow/internal/service"
)

type contextKey string

const (
	ActorKey     contextKey = "actor"
	RequestIDKey contextKey = "request_id"
)

// AuthMiddleware validates JWT tokens and resolves the acting user
type AuthMiddleware struct {
	authService *auth.Service
	users       service.UserDirectory
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authService *auth.Service, users service.UserDirectory) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		users:       users,
	}
}

// Authenticate validates the bearer token and adds the actor to the context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondWithError(w, http.StatusUnauthorized, "Missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			respondWithError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := m.authService.ValidateToken(parts[1])
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		user, err := m.users.GetUser(r.Context(), claims.UserID)
		if err != nil {
			slog.Error("Failed to load authenticated user", "user_id", claims.UserID, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to load user")
			return
		}
		if user == nil {
			respondWithError(w, http.StatusUnauthorized, "Unknown user")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), user)))
	})
}

// WithActor returns a copy of ctx carrying the acting user
func WithActor(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, ActorKey, user)
}

// GetActor retrieves the authenticated user from the request context
func GetActor(r *http.Request) (*models.User, bool) {
	user, ok := r.Context().Value(ActorKey).(*models.User)
	return user, ok && user != nil
}

// GetRequestID retrieves the request id assigned by RequestID
func GetRequestID(r *http.Request) string {
	id, _ := r.Context().Value(RequestIDKey).(string)
	return id
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
