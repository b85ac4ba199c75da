package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/josko3567/oby-server/internal/domain"
	"github.com/josko3567/oby-server/internal/money"
	"github.com/josko3567/oby-server/internal/repository"
)

type seedOffer struct {
	name, description, price string
}

var demoOffers = []seedOffer{
	{name: "Kava", description: "Espresso", price: "1.50"},
	{name: "Cedevita", description: "Vitaminski napitak", price: "2.40"},
}

var demoTables = []domain.Table{
	{Name: "Stol 1", OrderCount: 0},
	{Name: "Stol 2", OrderCount: 3},
	{Name: "Stol 3", OrderCount: 2},
	{Name: "Stol 4", OrderCount: 5},
	{Name: "Stol 5", OrderCount: 7},
}

// SeedDemoData inserts the demo offers and tables that are missing. Existing
// rows are left alone so a restart never rewinds a table's order count.
func (s *CatalogService) SeedDemoData(ctx context.Context) (int, error) {
	inserted := 0

	for _, o := range demoOffers {
		_, err := s.repo.GetOffer(ctx, o.name)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrOfferNotFound) {
			return inserted, fmt.Errorf("seed offer %s: %w", o.name, err)
		}
		price, err := money.Parse(o.price)
		if err != nil {
			return inserted, fmt.Errorf("seed offer %s: %w", o.name, err)
		}
		if err := s.UpsertOffer(ctx, domain.Offer{ID: o.name, Description: o.description, UnitPrice: price}); err != nil {
			return inserted, err
		}
		inserted++
	}

	for _, t := range demoTables {
		_, err := s.repo.GetTable(ctx, t.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrTableNotFound) {
			return inserted, fmt.Errorf("seed table %s: %w", t.Name, err)
		}
		if err := s.UpsertTable(ctx, t); err != nil {
			return inserted, err
		}
		inserted++
	}

	s.log.InfoContext(ctx, "demo data seeded", "inserted", inserted)
	return inserted, nil
}
