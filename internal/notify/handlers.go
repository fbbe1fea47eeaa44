package notify

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/events"
)

// Handler exposes webhook subscription management.
type Handler struct {
	Store Store
}

// Routes mounts the webhook admin surface on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{subscriptionId}/deliveries", h.Deliveries)
	r.Put("/{subscriptionId}/active", h.SetActive)
	r.Delete("/{subscriptionId}", h.Delete)
}

type createSubscriptionRequest struct {
	URL    string   `json:"url"`
	Secret string   `json:"secret"`
	Topics []string `json:"topics"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	if err := validateURL(strings.TrimSpace(req.URL)); err != nil {
		common.WriteError(w, common.Validation(err.Error(), nil))
		return
	}
	topics := normalizeTopics(req.Topics)
	if len(topics) == 0 {
		common.WriteError(w, common.Validation("at least one known topic is required", nil))
		return
	}
	sub, err := h.Store.CreateSubscription(r.Context(), strings.TrimSpace(req.URL), req.Secret, topics)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": sub})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.Store.ListSubscriptions(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if subs == nil {
		subs = []Subscription{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": subs})
}

func (h *Handler) Deliveries(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "subscriptionId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid subscription id", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	if perPage > 100 {
		perPage = 100
	}
	deliveries, total, err := h.Store.ListDeliveries(r.Context(), id, perPage, (page-1)*perPage)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if deliveries == nil {
		deliveries = []Delivery{}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       deliveries,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: total},
	})
}

func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "subscriptionId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid subscription id", nil)
		return
	}
	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	if err := h.Store.SetSubscriptionActive(r.Context(), id, req.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.WriteError(w, common.NotFound("subscription not found"))
			return
		}
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "subscriptionId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid subscription id", nil)
		return
	}
	if err := h.Store.DeleteSubscription(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.WriteError(w, common.NotFound("subscription not found"))
			return
		}
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func normalizeTopics(raw []string) []string {
	known := map[string]bool{}
	for _, t := range events.DefaultTopics() {
		known[t] = true
	}
	var out []string
	seen := map[string]bool{}
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" || !known[t] || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
