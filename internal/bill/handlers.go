package bill

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-kasir/internal/common"
)

// Handler exposes the checkout and bill history surface.
type Handler struct {
	Svc *Service
}

// Routes mounts the bill surface on a chi router. Checkout itself is mounted
// separately so the idempotency middleware wraps only the write.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{billId}", h.Get)
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var in CheckoutInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	b, err := h.Svc.Checkout(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": b})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "billId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid bill id", nil)
		return
	}
	b, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": b})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	if perPage > 100 {
		perPage = 100
	}
	var customerID uuid.UUID
	if v := r.URL.Query().Get("customerId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid customer id", nil)
			return
		}
		customerID = id
	}
	bills, total, err := h.Svc.List(r.Context(), customerID, perPage, (page-1)*perPage)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if bills == nil {
		bills = []Bill{}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       bills,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: total},
	})
}
