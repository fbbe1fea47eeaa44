package ledger

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-kasir/internal/common"
)

// Handler exposes receipt and journal endpoints.
type Handler struct {
	Svc *Service
}

// Routes mounts the ledger surface on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/receipts", h.CreateReceipt)
	r.Get("/receipts", h.ListReceipts)
	r.Get("/receipts/{receiptId}", h.GetReceipt)
	r.Get("/{partyType}/{partyId}/entries", h.ListEntries)
}

func (h *Handler) CreateReceipt(w http.ResponseWriter, r *http.Request) {
	var in CreateReceiptInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	rec, err := h.Svc.CreateReceipt(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": rec})
}

func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "receiptId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid receipt id", nil)
		return
	}
	rec, err := h.Svc.GetReceipt(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rec})
}

func (h *Handler) ListReceipts(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	if perPage > 100 {
		perPage = 100
	}
	var (
		pt      PartyType
		partyID uuid.UUID
	)
	if v := r.URL.Query().Get("partyType"); v != "" {
		pt = PartyType(v)
	}
	if v := r.URL.Query().Get("partyId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid party id", nil)
			return
		}
		partyID = id
	}
	recs, total, err := h.Svc.ListReceipts(r.Context(), pt, partyID, perPage, (page-1)*perPage)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if recs == nil {
		recs = []Receipt{}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       recs,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: total},
	})
}

func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	pt := PartyType(chi.URLParam(r, "partyType"))
	partyID, err := uuid.Parse(chi.URLParam(r, "partyId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid party id", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 50)
	if perPage > 200 {
		perPage = 200
	}
	entries, total, err := h.Svc.ListEntries(r.Context(), pt, partyID, perPage, (page-1)*perPage)
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
