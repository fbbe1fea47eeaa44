package security

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// CSRF double-submit check for the endpoints that authenticate via cookie
// instead of bearer token. The header and the cookie share one name.
type CSRF struct {
	Header string
}

var csrfSafeMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
}

func (c CSRF) Middleware(next http.Handler) http.Handler {
	name := strings.TrimSpace(c.Header)
	if name == "" {
		name = "X-CSRF-Token"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if csrfSafeMethods[r.Method] || hasBearerToken(r) {
			next.ServeHTTP(w, r)
			return
		}

		sent := strings.TrimSpace(r.Header.Get(name))
		if sent == "" {
			http.Error(w, "missing csrf token", http.StatusForbidden)
			return
		}
		cookie, err := r.Cookie(name)
		if err != nil || strings.TrimSpace(cookie.Value) == "" {
			http.Error(w, "missing csrf cookie", http.StatusForbidden)
			return
		}
		if subtle.ConstantTimeCompare([]byte(sent), []byte(cookie.Value)) != 1 {
			http.Error(w, "invalid csrf token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Bearer requests carry no ambient credentials, so CSRF does not apply.
func hasBearerToken(r *http.Request) bool {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	return strings.HasPrefix(strings.ToLower(auth), "bearer ")
}
