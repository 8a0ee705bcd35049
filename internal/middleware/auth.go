package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"groupsnap-backend/internal/models"
)

type contextKey string

const sessionKey contextKey = "session"

// TokenValidator turns a bearer token into a live session
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*models.Session, error)
}

// AuthMiddleware creates a middleware for JWT authentication
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			session, err := validator.ValidateToken(r.Context(), parts[1])
			if err != nil {
				if models.KindOf(err) == models.KindRemote {
					respondError(w, "Failed to validate session", http.StatusServiceUnavailable)
					return
				}
				respondError(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// WithSession returns a copy of ctx carrying session
func WithSession(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// GetSession extracts the session from context
func GetSession(ctx context.Context) *models.Session {
	session, _ := ctx.Value(sessionKey).(*models.Session)
	return session
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	if session := GetSession(ctx); session != nil {
		return session.UserID
	}
	return ""
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
