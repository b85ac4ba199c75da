package cache

import (
	"context"
	"errors"

	"github.com/josko3567/oby-server/internal/domain"
)

// OfferCache holds the full catalog listing.
type OfferCache interface {
	Get(ctx context.Context) ([]domain.Offer, error)
	Set(ctx context.Context, offers []domain.Offer) error
	Delete(ctx context.Context) error
}

var ErrCacheMiss = errors.New("cache miss")

// NopCache always misses. It stands in when no Redis address is configured.
type NopCache struct{}

func (NopCache) Get(context.Context) ([]domain.Offer, error) {
	return nil, ErrCacheMiss
}

func (NopCache) Set(context.Context, []domain.Offer) error {
	return nil
}

func (NopCache) Delete(context.Context) error {
	return nil
}
