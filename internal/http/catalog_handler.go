package http

import (
	"context"
	"net/http"
	"time"

	"github.com/josko3567/oby-server/internal/api"
	"github.com/josko3567/oby-server/internal/catalog"
	"github.com/josko3567/oby-server/internal/domain"
)

type CatalogService interface {
	ListOffers(ctx context.Context) ([]domain.Offer, error)
	GetOffer(ctx context.Context, name string) (domain.Offer, error)
	UpsertOffer(ctx context.Context, offer domain.Offer) error
	DeleteOffer(ctx context.Context, name string) error
	ListTables(ctx context.Context) ([]domain.Table, error)
	GetTable(ctx context.Context, name string) (domain.Table, error)
	UpsertTable(ctx context.Context, table domain.Table) error
	DeleteTable(ctx context.Context, name string) error
}

type CatalogHandler struct {
	svc     CatalogService
	timeout time.Duration
}

func NewCatalogHandler(svc CatalogService, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{
		svc:     svc,
		timeout: timeout,
	}
}

// GET /offers
func (h *CatalogHandler) ListOffers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	offers, err := h.svc.ListOffers(ctx)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, api.OffersResponse{Offers: toAPIOffers(offers)})
}

// GET /offers/{name}
func (h *CatalogHandler) GetOffer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	offer, err := h.svc.GetOffer(ctx, pathParam(r, "name"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, api.OfferResponse{Offer: catalog.FromDomain(offer)})
}

// POST /offers
func (h *CatalogHandler) UpsertOffer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req api.OfferInsertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	offer, err := catalog.ToDomain(req.Offer)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if err := h.svc.UpsertOffer(ctx, offer); err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, api.OfferResponse{Offer: catalog.FromDomain(offer)})
}

// DELETE /offers/{name}
func (h *CatalogHandler) DeleteOffer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.svc.DeleteOffer(ctx, pathParam(r, "name")); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GET /tables
func (h *CatalogHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	tables, err := h.svc.ListTables(ctx)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, api.TablesResponse{Tables: toAPITables(tables)})
}

// GET /tables/{name}
func (h *CatalogHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	table, err := h.svc.GetTable(ctx, pathParam(r, "name"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, api.TableResponse{Table: api.Table{Name: table.Name, OrderCount: table.OrderCount}})
}

// POST /tables
func (h *CatalogHandler) UpsertTable(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req api.TableInsertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	table := domain.Table{Name: req.Table.Name, OrderCount: req.Table.OrderCount}
	if err := h.svc.UpsertTable(ctx, table); err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, api.TableResponse{Table: req.Table})
}

// DELETE /tables/{name}
func (h *CatalogHandler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.svc.DeleteTable(ctx, pathParam(r, "name")); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GET /offers-tables
func (h *CatalogHandler) OffersTables(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	offers, err := h.svc.ListOffers(ctx)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	tables, err := h.svc.ListTables(ctx)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, api.OffersTablesResponse{
		Offers: toAPIOffers(offers),
		Tables: toAPITables(tables),
	})
}

func toAPIOffers(offers []domain.Offer) []api.Offer {
	out := make([]api.Offer, 0, len(offers))
	for _, o := range offers {
		out = append(out, catalog.FromDomain(o))
	}
	return out
}

func toAPITables(tables []domain.Table) []api.Table {
	out := make([]api.Table, 0, len(tables))
	for _, t := range tables {
		out = append(out, api.Table{Name: t.Name, OrderCount: t.OrderCount})
	}
	return out
}
