package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// RequireServiceToken gates inter-service routes behind the shared
// service credential. Every failure answers 403: a missing, malformed
// or mismatched credential is the same refusal on the wire, and only
// the audit log distinguishes the outcomes. The comparison is
// constant-time and the log records the outcome only, never the
// credential itself.
func RequireServiceToken(token string, logger zerolog.Logger) func(http.Handler) http.Handler {
	expected := []byte(token)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn().Str("path", r.URL.Path).Msg("Service request without credential")
				writeAuthError(w, http.StatusForbidden, "Access denied. No service token provided")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				logger.Warn().Str("path", r.URL.Path).Msg("Service request with malformed credential header")
				writeAuthError(w, http.StatusForbidden, "Invalid token format. Expected 'Bearer <token>'")
				return
			}

			if subtle.ConstantTimeCompare([]byte(parts[1]), expected) != 1 {
				logger.Warn().Str("path", r.URL.Path).Msg("Service request with invalid credential")
				writeAuthError(w, http.StatusForbidden, "Invalid service token")
				return
			}

			logger.Debug().Str("path", r.URL.Path).Msg("Service credential verified")
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	})
}
