package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/josko3567/oby-server/internal/cart"
	"github.com/josko3567/oby-server/internal/domain"
	"github.com/josko3567/oby-server/internal/money"
	"github.com/josko3567/oby-server/internal/repository"
)

// OfferLister supplies the current catalog for pricing.
type OfferLister interface {
	ListOffers(ctx context.Context) ([]domain.Offer, error)
}

type OrderService struct {
	repo   repository.OrderRepository
	offers OfferLister
	log    *slog.Logger
}

func NewOrderService(repo repository.OrderRepository, offers OfferLister, log *slog.Logger) *OrderService {
	if log == nil {
		log = slog.Default()
	}
	return &OrderService{
		repo:   repo,
		offers: offers,
		log:    log,
	}
}

// PlaceOrder validates and prices an order for a table. Items naming the same
// offer are merged. The order count sent by the client is ignored; the
// repository assigns the next count for the table.
func (s *OrderService) PlaceOrder(ctx context.Context, table string, items []domain.OrderItem) (domain.Order, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return domain.Order{}, fmt.Errorf("table: %w", ErrInvalidName)
	}

	lines, err := s.priceLines(ctx, items)
	if err != nil {
		return domain.Order{}, err
	}

	order := domain.Order{
		ID:    domain.OrderID{Table: table},
		Items: make([]domain.OrderItem, len(lines)),
		Total: money.Zero(),
	}
	for i, line := range lines {
		order.Items[i] = domain.OrderItem{OfferID: line.OfferID, Count: line.Quantity}
		order.Total = order.Total.Add(line.ExtendedPrice())
	}

	if err := s.repo.CreateOrder(ctx, &order); err != nil {
		if !errors.Is(err, repository.ErrTableNotFound) {
			s.log.ErrorContext(ctx, "repo create order error", "table", table, "error", err)
		}
		return domain.Order{}, err
	}

	s.log.InfoContext(ctx, "order placed",
		"table", order.ID.Table,
		"count", order.ID.Count,
		"lines", len(order.Items),
		"total", order.Total.String())
	return order, nil
}

// priceLines merges the requested items into cart lines priced from the catalog.
func (s *OrderService) priceLines(ctx context.Context, items []domain.OrderItem) ([]cart.Line, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	offers, err := s.offers.ListOffers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load offers: %w", err)
	}
	byName := make(map[string]domain.Offer, len(offers))
	for _, o := range offers {
		byName[o.ID] = o
	}

	var (
		lines []cart.Line
		index = make(map[string]int, len(items))
	)
	for _, item := range items {
		if item.Count < 1 {
			return nil, fmt.Errorf("%w: %q has count %d", ErrInvalidQuantity, item.OfferID, item.Count)
		}
		offer, ok := byName[item.OfferID]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOffer, item.OfferID)
		}

		if i, seen := index[item.OfferID]; seen {
			lines[i].Quantity += item.Count
			continue
		}
		index[item.OfferID] = len(lines)
		lines = append(lines, cart.Line{
			OfferID:     offer.ID,
			Description: offer.Description,
			UnitPrice:   offer.UnitPrice,
			Quantity:    item.Count,
		})
	}
	return lines, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id domain.OrderID) (domain.Order, error) {
	return s.repo.GetOrder(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	switch filter.Status {
	case "", domain.OrderStatusNew, domain.OrderStatusOld:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, filter.Status)
	}
	return s.repo.ListOrders(ctx, filter)
}

func (s *OrderService) DeleteOrder(ctx context.Context, id domain.OrderID) error {
	return s.repo.DeleteOrder(ctx, id)
}

func (s *OrderService) FinishOrder(ctx context.Context, id domain.OrderID) (domain.Order, error) {
	order, err := s.repo.FinishOrder(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	s.log.InfoContext(ctx, "order finished", "table", id.Table, "count", id.Count)
	return order, nil
}
