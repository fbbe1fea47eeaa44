package purchase

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-kasir/internal/common"
)

// Handler exposes the voucher surface.
type Handler struct {
	Svc *Service
}

// Routes mounts the read side; Create is mounted separately under the
// idempotency middleware.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{purchaseId}", h.Get)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	p, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": p})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "purchaseId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid purchase id", nil)
		return
	}
	p, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	if perPage > 100 {
		perPage = 100
	}
	var vendorID uuid.UUID
	if v := r.URL.Query().Get("vendorId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid vendor id", nil)
			return
		}
		vendorID = id
	}
	purchases, total, err := h.Svc.List(r.Context(), vendorID, perPage, (page-1)*perPage)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if purchases == nil {
		purchases = []Purchase{}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       purchases,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: total},
	})
}
