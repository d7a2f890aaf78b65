package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/chorely/chorely/internal/models"
	pkghttp "github.com/chorely/chorely/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for storing user claims in context
	UserContextKey contextKey = "user"
)

// UserRepository is used to confirm the token subject still exists
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// AuthMiddleware validates bearer access tokens and injects the claims into context.
// A nil userRepo skips the existence check.
func AuthMiddleware(tm *TokenManager, userRepo UserRepository, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				pkghttp.WriteUnauthorized(w, "Missing Authorization header.")
				return
			}

			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || strings.TrimSpace(tokenString) == "" {
				pkghttp.WriteUnauthorized(w, "Invalid Authorization format. Expected 'Bearer <token>'.")
				return
			}

			claims, err := tm.ValidateToken(strings.TrimSpace(tokenString))
			if err != nil {
				pkghttp.WriteForbidden(w, "Invalid or expired token")
				return
			}

			if userRepo != nil {
				if _, err := userRepo.GetByID(r.Context(), claims.UserID); err != nil {
					if errors.Is(err, models.ErrNotFound) {
						pkghttp.WriteUnauthorized(w, "Authentication failed: User not found.")
						return
					}
					logger.Error("failed to load token subject", slog.String("user_id", claims.UserID), slog.Any("error", err))
					pkghttp.WriteInternalError(w, "Internal server error")
					return
				}
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserFromContext extracts user claims from request context
func GetUserFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(UserContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}
