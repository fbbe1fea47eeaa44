package audit

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-kasir/internal/common"
)

// Handler exposes read access to the audit trail.
type Handler struct {
	Svc Service
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 50)
	if perPage > 200 {
		perPage = 200
	}
	entries, total, err := h.Svc.List(r.Context(), r.URL.Query().Get("entity"), perPage, (page-1)*perPage)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       entries,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: total},
	})
}
