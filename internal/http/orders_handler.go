package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/josko3567/oby-server/internal/api"
	"github.com/josko3567/oby-server/internal/domain"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, table string, items []domain.OrderItem) (domain.Order, error)
	GetOrder(ctx context.Context, id domain.OrderID) (domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	DeleteOrder(ctx context.Context, id domain.OrderID) error
	FinishOrder(ctx context.Context, id domain.OrderID) (domain.Order, error)
}

type OrdersHandler struct {
	svc     OrderService
	timeout time.Duration
}

func NewOrdersHandler(svc OrderService, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		svc:     svc,
		timeout: timeout,
	}
}

// POST /orders
func (h *OrdersHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req api.OrderEnvelope
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	items := make([]domain.OrderItem, 0, len(req.Order.Items))
	for _, item := range req.Order.Items {
		items = append(items, domain.OrderItem{OfferID: item.ID, Count: item.Count})
	}

	order, err := h.svc.PlaceOrder(ctx, req.Order.ID.Table, items)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, api.OrderCreatedResponse{
		Order: toAPIOrder(order),
		Total: order.Total.String(),
	})
}

// GET /orders?status=new|old&table=...
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	filter := domain.OrderFilter{
		Status: domain.OrderStatus(r.URL.Query().Get("status")),
		Table:  r.URL.Query().Get("table"),
	}

	orders, err := h.svc.ListOrders(ctx, filter)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	dtos := make([]api.Order, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, toAPIOrder(o))
	}

	respondJSON(w, http.StatusOK, api.OrdersResponse{Orders: dtos})
}

// GET /orders/{table}/{count}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := orderIDFromPath(w, r)
	if !ok {
		return
	}

	order, err := h.svc.GetOrder(ctx, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, api.OrderEnvelope{Order: toAPIOrder(order)})
}

// DELETE /orders/{table}/{count}
func (h *OrdersHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := orderIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteOrder(ctx, id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// POST /orders/{table}/{count}/finish
func (h *OrdersHandler) FinishOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := orderIDFromPath(w, r)
	if !ok {
		return
	}

	order, err := h.svc.FinishOrder(ctx, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, api.OrderFinishedResponse{Table: order.ID.Table})
}

func orderIDFromPath(w http.ResponseWriter, r *http.Request) (domain.OrderID, bool) {
	count, err := strconv.ParseInt(pathParam(r, "count"), 10, 64)
	if err != nil || count <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "count must be a positive integer")
		return domain.OrderID{}, false
	}
	return domain.OrderID{Table: pathParam(r, "table"), Count: count}, true
}

func toAPIOrder(o domain.Order) api.Order {
	items := make([]api.OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, api.OrderItem{ID: item.OfferID, Count: item.Count})
	}
	return api.Order{
		ID:       api.OrderID{Count: o.ID.Count, Table: o.ID.Table},
		Finished: o.Finished,
		Items:    items,
	}
}
