package auth

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-kasir/internal/common"
)

// Handler exposes the authentication surface. The refresh token travels in an
// HttpOnly cookie; the access token travels in the JSON body.
type Handler struct {
	Service           *Service
	RefreshCookieName string
	CookieDomain      string
	CookieSecure      bool
	CookieSameSite    http.SameSite
}

// Routes mounts the auth surface on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/refresh", h.Refresh)
	r.Post("/logout", h.Logout)
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	user, err := h.Service.Register(r.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": user})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	result, err := h.Service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.setRefreshCookie(w, result.RefreshToken, result.RefreshExpiry)
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	pair, err := h.Service.Refresh(r.Context(), h.refreshTokenFromRequest(r))
	if err != nil {
		h.clearRefreshCookie(w)
		common.WriteError(w, err)
		return
	}
	h.setRefreshCookie(w, pair.RefreshToken, pair.RefreshExpiry)
	common.JSON(w, http.StatusOK, map[string]any{"data": pair})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	_ = h.Service.Logout(r.Context(), h.refreshTokenFromRequest(r))
	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me behind the auth middleware.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "missing or invalid token", nil)
		return
	}
	user, err := h.Service.Me(r.Context(), userID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": user})
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string, expires time.Time) {
	if h.RefreshCookieName == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.RefreshCookieName,
		Value:    token,
		Domain:   h.CookieDomain,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: h.CookieSameSite,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	if h.RefreshCookieName == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.RefreshCookieName,
		Value:    "",
		Domain:   h.CookieDomain,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: h.CookieSameSite,
	})
}

func (h *Handler) refreshTokenFromRequest(r *http.Request) string {
	if h.RefreshCookieName == "" {
		return ""
	}
	if cookie, err := r.Cookie(h.RefreshCookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
