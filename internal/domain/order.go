package domain

import (
	"time"

	"github.com/josko3567/oby-server/internal/money"
)

type OrderStatus string

const (
	OrderStatusNew OrderStatus = "new"
	OrderStatusOld OrderStatus = "old"
)

// OrderID identifies an order by its table and the per-table sequence count.
type OrderID struct {
	Table string
	Count int64
}

type OrderItem struct {
	OfferID string
	Count   int
}

type Order struct {
	ID        OrderID
	Finished  bool
	Items     []OrderItem
	Total     money.Money
	CreatedAt time.Time
}

func (o Order) Status() OrderStatus {
	if o.Finished {
		return OrderStatusOld
	}
	return OrderStatusNew
}

// OrderFilter narrows a listing. Zero values match everything.
type OrderFilter struct {
	Status OrderStatus
	Table  string
}
