package repository

import (
	"context"
	"errors"

	"github.com/josko3567/oby-server/internal/domain"
)

var (
	ErrOfferNotFound = errors.New("offer not found")
	ErrTableNotFound = errors.New("table not found")
	ErrOrderNotFound = errors.New("order not found")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type OfferRepository interface {
	ListOffers(ctx context.Context) ([]domain.Offer, error)
	GetOffer(ctx context.Context, name string) (domain.Offer, error)
	UpsertOffer(ctx context.Context, offer domain.Offer) error
	DeleteOffer(ctx context.Context, name string) error
}

type TableRepository interface {
	ListTables(ctx context.Context) ([]domain.Table, error)
	GetTable(ctx context.Context, name string) (domain.Table, error)
	UpsertTable(ctx context.Context, table domain.Table) error
	DeleteTable(ctx context.Context, name string) error
}

type OrderRepository interface {
	// CreateOrder assigns order.ID.Count from the table's sequence and records
	// an OrderPlaced outbox event in the same transaction.
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id domain.OrderID) (domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	DeleteOrder(ctx context.Context, id domain.OrderID) error
	// FinishOrder marks the order finished and records an OrderFinished event.
	FinishOrder(ctx context.Context, id domain.OrderID) (domain.Order, error)
}

type OutboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

type RepoInterface interface {
	OfferRepository
	TableRepository
	OrderRepository
	OutboxRepository
	Ping(ctx context.Context) error
	Close() error
}
