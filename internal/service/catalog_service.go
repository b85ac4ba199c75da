package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/josko3567/oby-server/internal/cache"
	"github.com/josko3567/oby-server/internal/domain"
	"github.com/josko3567/oby-server/internal/repository"
	"golang.org/x/sync/singleflight"
)

type catalogRepository interface {
	repository.OfferRepository
	repository.TableRepository
}

// CatalogService serves offers and tables. The offer listing is read through
// the cache.
type CatalogService struct {
	repo  catalogRepository
	cache cache.OfferCache
	sfg   singleflight.Group // Prevents cache stampede
	log   *slog.Logger

	// generation is bumped on every offer write. A cache fill started under an
	// older generation must not leave its list in the cache.
	generation atomic.Uint64
}

func NewCatalogService(repo catalogRepository, c cache.OfferCache, log *slog.Logger) *CatalogService {
	if c == nil {
		c = cache.NopCache{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &CatalogService{
		repo:  repo,
		cache: c,
		log:   log,
	}
}

func (s *CatalogService) ListOffers(ctx context.Context) ([]domain.Offer, error) {
	v, err, _ := s.sfg.Do("offers", func() (interface{}, error) {
		offers, err := s.cache.Get(ctx)
		if err == nil {
			return offers, nil
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WarnContext(ctx, "cache get error", "error", err)
		}

		gen := s.generation.Load()
		offers, errList := s.repo.ListOffers(ctx)
		if errList != nil {
			return nil, errList
		}

		go s.fillCache(offers, gen)

		return offers, nil
	})

	if err != nil {
		return nil, err
	}

	offers := v.([]domain.Offer)
	out := make([]domain.Offer, len(offers))
	copy(out, offers)
	return out, nil
}

func (s *CatalogService) GetOffer(ctx context.Context, name string) (domain.Offer, error) {
	return s.repo.GetOffer(ctx, name)
}

// UpsertOffer stores the offer under its name. An existing offer with the same
// name is replaced.
func (s *CatalogService) UpsertOffer(ctx context.Context, offer domain.Offer) error {
	offer.ID = strings.TrimSpace(offer.ID)
	if offer.ID == "" {
		return ErrInvalidName
	}

	if err := s.repo.UpsertOffer(ctx, offer); err != nil {
		s.log.ErrorContext(ctx, "repo upsert offer error", "offer", offer.ID, "error", err)
		return err
	}

	s.invalidateCache()
	return nil
}

func (s *CatalogService) DeleteOffer(ctx context.Context, name string) error {
	if err := s.repo.DeleteOffer(ctx, name); err != nil {
		if !errors.Is(err, repository.ErrOfferNotFound) {
			s.log.ErrorContext(ctx, "repo delete offer error", "offer", name, "error", err)
		}
		return err
	}

	s.invalidateCache()
	return nil
}

func (s *CatalogService) ListTables(ctx context.Context) ([]domain.Table, error) {
	return s.repo.ListTables(ctx)
}

func (s *CatalogService) GetTable(ctx context.Context, name string) (domain.Table, error) {
	return s.repo.GetTable(ctx, name)
}

func (s *CatalogService) UpsertTable(ctx context.Context, table domain.Table) error {
	table.Name = strings.TrimSpace(table.Name)
	if table.Name == "" {
		return ErrInvalidName
	}
	if table.OrderCount < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidOrderCount, table.OrderCount)
	}
	return s.repo.UpsertTable(ctx, table)
}

func (s *CatalogService) DeleteTable(ctx context.Context, name string) error {
	return s.repo.DeleteTable(ctx, name)
}

// fillCache stores offers read under generation gen. When an offer write lands
// while the fill is in flight the key is dropped again.
func (s *CatalogService) fillCache(offers []domain.Offer, gen uint64) {
	if s.generation.Load() != gen {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Set(ctx, offers); err != nil {
		s.log.Warn("cache set error", "error", err)
		return
	}

	if s.generation.Load() != gen {
		if err := s.cache.Delete(ctx); err != nil {
			s.log.Warn("cache invalidate error", "error", err)
		}
	}
}

func (s *CatalogService) invalidateCache() {
	s.generation.Add(1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx); err != nil {
		s.log.Warn("cache invalidate error", "error", err)
	}
}
