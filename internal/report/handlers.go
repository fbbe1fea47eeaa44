package report

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-kasir/internal/common"
)

// Handler exposes the reporting surface.
type Handler struct {
	Svc *Service
}

// Routes mounts the report surface on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/sales", h.Sales)
	r.Get("/top-products", h.TopProducts)
	r.Get("/outstanding/{partyType}", h.Outstanding)
}

func parseRange(r *http.Request) (from, to time.Time, err error) {
	if v := r.URL.Query().Get("from"); v != "" {
		from, err = time.Parse("2006-01-02", v)
		if err != nil {
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to, err = time.Parse("2006-01-02", v)
		if err != nil {
			return
		}
		// Exclusive upper bound: a "to" date includes that whole day.
		to = to.AddDate(0, 0, 1)
	}
	return
}

func (h *Handler) Sales(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "dates must be YYYY-MM-DD", nil)
		return
	}
	rows, err := h.Svc.SalesRange(r.Context(), from, to)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if rows == nil {
		rows = []DailySales{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

func (h *Handler) TopProducts(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "dates must be YYYY-MM-DD", nil)
		return
	}
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 10)
	rows, err := h.Svc.TopProducts(r.Context(), from, to, limit)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if rows == nil {
		rows = []TopProduct{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

func (h *Handler) Outstanding(w http.ResponseWriter, r *http.Request) {
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 50)
	rows, err := h.Svc.Outstanding(r.Context(), chi.URLParam(r, "partyType"), limit)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	if rows == nil {
		rows = []OutstandingParty{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}
