package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-kasir/internal/common"
)

// Middleware guards handler trees behind access-token authentication.
type Middleware struct {
	Service *Service
}

// RequireAuth rejects the request unless a valid bearer token is present,
// stashing the cashier id on the context for downstream handlers.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Service == nil {
			common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "auth service not configured", nil)
			return
		}
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeUnauthorized(w)
			return
		}
		userID, err := m.Service.ParseAccessToken(token)
		if err != nil {
			var appErr *common.AppError
			if errors.As(err, &appErr) {
				common.WriteError(w, appErr)
			} else {
				writeUnauthorized(w)
			}
			return
		}
		next.ServeHTTP(w, r.WithContext(common.WithUserID(r.Context(), userID)))
	})
}

func writeUnauthorized(w http.ResponseWriter) {
	common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "missing or invalid token", nil)
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
