package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/MeDjb10/recruitment-platform-backend/internal/service/integration"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	roleKey   contextKey = "user_role"
)

// Authenticate verifies the end-user bearer token against the
// authentication service and enforces the role allow-list. Auth-service
// rejections surface as 401, unreachability as 500.
func Authenticate(client integration.AuthClient, logger zerolog.Logger, allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				writeAuthError(w, http.StatusUnauthorized, "Access denied. No token provided.")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			info, err := client.Verify(r.Context(), token)
			if err != nil {
				if errors.Is(err, integration.ErrAuthUnavailable) {
					writeAuthError(w, http.StatusInternalServerError, "Authentication service unavailable")
					return
				}
				writeAuthError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			if len(allowedRoles) > 0 && !contains(allowedRoles, info.Role) {
				logger.Warn().
					Str("user_id", info.UserID).
					Str("role", info.Role).
					Msg("Access denied, insufficient permissions")
				writeAuthError(w, http.StatusForbidden, "Access denied. Insufficient permissions.")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, info.UserID)
			ctx = context.WithValue(ctx, roleKey, info.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey).(string)
	return role
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
