package party_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/ledger"
	"github.com/noah-isme/backend-kasir/internal/party"
)

type memStore struct {
	parties map[uuid.UUID]party.Party
}

func newMemStore() *memStore {
	return &memStore{parties: map[uuid.UUID]party.Party{}}
}

func (m *memStore) Create(_ context.Context, pt ledger.PartyType, in party.CreateInput) (party.Party, error) {
	p := party.Party{
		ID:             uuid.New(),
		Type:           pt,
		Name:           in.Name,
		Phone:          in.Phone,
		Email:          in.Email,
		Address:        in.Address,
		OpeningBalance: in.OpeningBalance,
		LedgerBalance:  in.OpeningBalance,
	}
	m.parties[p.ID] = p
	return p, nil
}

func (m *memStore) Get(_ context.Context, _ ledger.PartyType, id uuid.UUID) (party.Party, error) {
	p, ok := m.parties[id]
	if !ok {
		return party.Party{}, common.NotFound("customer not found")
	}
	return p, nil
}

func (m *memStore) List(context.Context, ledger.PartyType, string, int, int) ([]party.Party, int, error) {
	out := make([]party.Party, 0, len(m.parties))
	for _, p := range m.parties {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *memStore) Update(_ context.Context, _ ledger.PartyType, id uuid.UUID, in party.UpdateInput) (party.Party, error) {
	p, ok := m.parties[id]
	if !ok {
		return party.Party{}, common.NotFound("customer not found")
	}
	p.Name = in.Name
	m.parties[id] = p
	return p, nil
}

func (m *memStore) Delete(_ context.Context, _ ledger.PartyType, id uuid.UUID) error {
	p, ok := m.parties[id]
	if !ok {
		return common.NotFound("customer not found")
	}
	if p.LedgerBalance != 0 {
		return common.Validation("cannot delete a party with an outstanding balance", nil)
	}
	delete(m.parties, id)
	return nil
}

func newRouter(store party.Store) *chi.Mux {
	h := &party.Handler{Store: store, Type: ledger.PartyCustomer}
	r := chi.NewRouter()
	r.Route("/customers", h.Routes)
	return r
}

func TestCreateCustomer(t *testing.T) {
	store := newMemStore()
	r := newRouter(store)

	body := []byte(`{"name":"Asha Stores","phone":"9876500001","openingBalance":150000}`)
	req := httptest.NewRequest(http.MethodPost, "/customers", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data party.Party `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Asha Stores", resp.Data.Name)
	require.EqualValues(t, 150000, resp.Data.LedgerBalance, "opening balance seeds the running balance")
}

func TestCreateCustomerRejectsEmptyName(t *testing.T) {
	r := newRouter(newMemStore())
	req := httptest.NewRequest(http.MethodPost, "/customers", bytes.NewReader([]byte(`{"name":""}`)))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDeleteCustomerWithBalance(t *testing.T) {
	store := newMemStore()
	p, err := store.Create(context.Background(), ledger.PartyCustomer, party.CreateInput{Name: "Dues", OpeningBalance: 5000})
	require.NoError(t, err)

	r := newRouter(store)
	req := httptest.NewRequest(http.MethodDelete, "/customers/"+p.ID.String(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetCustomerNotFound(t *testing.T) {
	r := newRouter(newMemStore())
	req := httptest.NewRequest(http.MethodGet, "/customers/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
