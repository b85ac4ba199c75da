package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/josko3567/oby-server/internal/domain"
	"github.com/josko3567/oby-server/internal/money"
	"github.com/redis/go-redis/v9"
)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

// cachedOffer keeps the price as exact integer parts.
type cachedOffer struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Units       string `json:"units"`
	Hundredths  int64  `json:"hundredths"`
}

func (r RedisCache) Get(ctx context.Context) ([]domain.Offer, error) {
	data, err := r.client.Get(ctx, cacheKey("offers")).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cached []cachedOffer
	if err2 := json.Unmarshal(data, &cached); err2 != nil {
		return nil, fmt.Errorf("unmarshal offers failed: %w", err2)
	}

	offers := make([]domain.Offer, 0, len(cached))
	for _, c := range cached {
		price, err := money.ParseParts(c.Units, strconv.FormatInt(c.Hundredths, 10))
		if err != nil {
			return nil, fmt.Errorf("cached offer %q: %w", c.Name, err)
		}
		offers = append(offers, domain.Offer{ID: c.Name, Description: c.Description, UnitPrice: price})
	}
	return offers, nil
}

func (r RedisCache) Set(ctx context.Context, offers []domain.Offer) error {
	cached := make([]cachedOffer, len(offers))
	for i, o := range offers {
		cached[i] = cachedOffer{
			Name:        o.ID,
			Description: o.Description,
			Units:       o.UnitPrice.Units().String(),
			Hundredths:  o.UnitPrice.Hundredths(),
		}
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal offers failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	ttl := r.baseTTL + jitter
	if err := r.client.Set(ctx, cacheKey("offers"), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r RedisCache) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, cacheKey("offers")).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(name string) string {
	return fmt.Sprintf("catalog:%s", name)
}
