package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	AuthenticatedUserContextKey = ContextKey("authenticatedUser")
)

// AuthenticatedUser holds identity claims extracted from a validated token.
type AuthenticatedUser struct {
	ID      uuid.UUID
	Role    string
	IsAdmin bool
}

// authClaims mirrors the access token payload issued by the identity service.
type authClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates the Bearer access token and puts the
// AuthenticatedUser on the request context. Only sponsors and admins may
// reach the bulk endpoints.
func AuthMiddleware(accessSecret string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.WarnContext(r.Context(), "Authorization header missing")
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.WarnContext(r.Context(), "Invalid Authorization header format")
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			claims := &authClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(accessSecret), nil
			})
			if err != nil || !token.Valid {
				logger.WarnContext(r.Context(), "Token validation failed", "error", err)
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				logger.WarnContext(r.Context(), "Token subject is not a valid user id", "subject", claims.Subject)
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			if claims.Role != "Sponsor" && claims.Role != "Admin" {
				logger.WarnContext(r.Context(), "User role not permitted for bulk operations",
					"user_id", userID, "role", claims.Role)
				http.Error(w, "Forbidden: sponsor or admin role required", http.StatusForbidden)
				return
			}

			authUser := AuthenticatedUser{
				ID:      userID,
				Role:    claims.Role,
				IsAdmin: claims.Role == "Admin",
			}
			ctx := ContextWithUser(r.Context(), authUser)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ContextWithUser returns ctx carrying the authenticated user.
func ContextWithUser(ctx context.Context, user AuthenticatedUser) context.Context {
	return context.WithValue(ctx, AuthenticatedUserContextKey, user)
}

// UserFromContext extracts the authenticated user set by AuthMiddleware.
func UserFromContext(ctx context.Context) (AuthenticatedUser, bool) {
	user, ok := ctx.Value(AuthenticatedUserContextKey).(AuthenticatedUser)
	return user, ok
}

// WorkerAuthMiddleware guards the internal progress callback with a static
// bearer token shared with the worker fleet.
func WorkerAuthMiddleware(workerToken string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] != workerToken {
				logger.WarnContext(r.Context(), "Worker callback rejected: bad token")
				http.Error(w, "Invalid worker token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
