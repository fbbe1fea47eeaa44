package returns

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-kasir/internal/common"
)

// Handler exposes the return surface.
type Handler struct {
	Svc *Service
}

// Routes mounts the read side; the two create endpoints are mounted
// separately under the idempotency middleware.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{returnId}", h.Get)
}

func (h *Handler) CreateSales(w http.ResponseWriter, r *http.Request) {
	h.createWith(w, r, h.Svc.CreateSales)
}

func (h *Handler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	h.createWith(w, r, h.Svc.CreatePurchase)
}

func (h *Handler) createWith(w http.ResponseWriter, r *http.Request, create func(ctx context.Context, in CreateInput) (Return, error)) {
	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	ret, err := create(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": ret})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "returnId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid return id", nil)
		return
	}
	ret, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": ret})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	if perPage > 100 {
		perPage = 100
	}
	rets, total, err := h.Svc.List(r.Context(), Kind(r.URL.Query().Get("kind")), perPage, (page-1)*perPage)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if rets == nil {
		rets = []Return{}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       rets,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: total},
	})
}
