package party

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/ledger"
)

// Handler serves one party type's CRUD surface; mount it once for customers
// and once for vendors.
type Handler struct {
	Store Store
	Type  ledger.PartyType
}

// Routes mounts the party surface on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{partyId}", h.Get)
	r.Put("/{partyId}", h.Update)
	r.Delete("/{partyId}", h.Delete)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if err := common.ValidateStruct(in); err != nil {
		common.WriteError(w, err)
		return
	}
	p, err := h.Store.Create(r.Context(), h.Type, in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": p})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "partyId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid id", nil)
		return
	}
	p, err := h.Store.Get(r.Context(), h.Type, id)
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
	parties, total, err := h.Store.List(r.Context(), h.Type, r.URL.Query().Get("q"), perPage, (page-1)*perPage)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if parties == nil {
		parties = []Party{}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       parties,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: total},
	})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "partyId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid id", nil)
		return
	}
	var in UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if err := common.ValidateStruct(in); err != nil {
		common.WriteError(w, err)
		return
	}
	p, err := h.Store.Update(r.Context(), h.Type, id, in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "partyId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid id", nil)
		return
	}
	if err := h.Store.Delete(r.Context(), h.Type, id); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
