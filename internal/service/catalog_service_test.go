package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/josko3567/oby-server/internal/domain"
	"github.com/josko3567/oby-server/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListOffers_CacheMissFillsCache(t *testing.T) {
	repo := newMockRepository(t)
	c := &mockCache{}

	sut := NewCatalogService(repo, c, nil)
	offers, err := sut.ListOffers(context.Background())
	require.NoError(t, err)
	assert.Len(t, offers, 4)
	assert.Equal(t, "Kava", offers[0].ID)

	require.Eventually(t, func() bool {
		return c.getOffers() != nil
	}, 100*time.Millisecond, 10*time.Millisecond, "offers were not set in cache")
}

func TestListOffers_CacheHit(t *testing.T) {
	repo := newMockRepository(t)
	c := &mockCache{offers: []domain.Offer{{ID: "Cached", UnitPrice: mustMoney(t, "1.00")}}}

	sut := NewCatalogService(repo, c, nil)
	offers, err := sut.ListOffers(context.Background())
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, "Cached", offers[0].ID)
	assert.Equal(t, int32(0), repo.listCalls.Load())
}

func TestListOffers_CacheErrorFallsBackToRepo(t *testing.T) {
	repo := newMockRepository(t)
	c := &mockCache{err: errors.New("redis down")}

	sut := NewCatalogService(repo, c, nil)
	offers, err := sut.ListOffers(context.Background())
	require.NoError(t, err)
	assert.Len(t, offers, 4)
}

func TestListOffers_RepoError(t *testing.T) {
	repo := newMockRepository(t)
	repo.err = errors.New("database error")
	c := &mockCache{}

	sut := NewCatalogService(repo, c, nil)
	_, err := sut.ListOffers(context.Background())
	require.ErrorContains(t, err, "database error")
	assert.Nil(t, c.getOffers())
}

func TestListOffers_SingleflightCollapsesConcurrentMisses(t *testing.T) {
	repo := newMockRepository(t)
	repo.listGate = make(chan struct{})
	sut := NewCatalogService(repo, &mockCache{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sut.ListOffers(context.Background())
			assert.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool { return repo.listCalls.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(repo.listGate)
	wg.Wait()

	assert.Less(t, repo.listCalls.Load(), int32(10))
}

func TestUpsertOffer_InvalidatesCache(t *testing.T) {
	repo := newMockRepository(t)
	c := &mockCache{offers: []domain.Offer{{ID: "Stale"}}}

	sut := NewCatalogService(repo, c, nil)
	err := sut.UpsertOffer(context.Background(), domain.Offer{ID: " Pivo ", UnitPrice: mustMoney(t, "3.20")})
	require.NoError(t, err)

	assert.Nil(t, c.getOffers())
	assert.Equal(t, 1, c.deleteCount())

	got, err := sut.GetOffer(context.Background(), "Pivo")
	require.NoError(t, err)
	assert.Equal(t, "3.20", got.UnitPrice.String())
}

func TestListOffers_WriteDuringCacheFillDropsStaleList(t *testing.T) {
	repo := newMockRepository(t)
	c := &mockCache{setStarted: make(chan struct{}, 1), setGate: make(chan struct{})}
	sut := NewCatalogService(repo, c, nil)
	ctx := context.Background()

	offers, err := sut.ListOffers(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.50", offers[0].UnitPrice.String())

	select {
	case <-c.setStarted:
	case <-time.After(time.Second):
		t.Fatal("cache fill did not start")
	}

	require.NoError(t, sut.UpsertOffer(ctx, domain.Offer{ID: "Kava", UnitPrice: mustMoney(t, "1.80")}))
	close(c.setGate)

	require.Eventually(t, func() bool {
		return c.setCount() == 1 && c.deleteCount() == 2
	}, time.Second, 10*time.Millisecond, "stale fill was not dropped")
	assert.Nil(t, c.getOffers())

	c.setStarted = nil
	offers, err = sut.ListOffers(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.80", offers[0].UnitPrice.String())
}

func TestListOffers_WriteBeforeCacheFillSkipsFill(t *testing.T) {
	repo := newMockRepository(t)
	repo.listGate = make(chan struct{})
	c := &mockCache{}
	sut := NewCatalogService(repo, c, nil)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := sut.ListOffers(ctx)
		assert.NoError(t, err)
	}()

	require.Eventually(t, func() bool {
		return repo.listCalls.Load() == 1
	}, time.Second, time.Millisecond)
	require.NoError(t, sut.DeleteOffer(ctx, "Cedevita"))
	close(repo.listGate)
	<-done

	assert.Never(t, func() bool {
		return c.setCount() > 0
	}, 50*time.Millisecond, 5*time.Millisecond)
}

func TestUpsertOffer_EmptyName(t *testing.T) {
	sut := NewCatalogService(newMockRepository(t), &mockCache{}, nil)
	err := sut.UpsertOffer(context.Background(), domain.Offer{ID: "  "})
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestDeleteOffer(t *testing.T) {
	repo := newMockRepository(t)
	c := &mockCache{}
	sut := NewCatalogService(repo, c, nil)

	require.NoError(t, sut.DeleteOffer(context.Background(), "Kava"))
	assert.Equal(t, 1, c.deleteCount())

	err := sut.DeleteOffer(context.Background(), "Kava")
	assert.ErrorIs(t, err, repository.ErrOfferNotFound)
	assert.Equal(t, 1, c.deleteCount(), "failed delete leaves cache alone")
}

func TestTables(t *testing.T) {
	sut := NewCatalogService(newMockRepository(t), nil, nil)
	ctx := context.Background()

	require.NoError(t, sut.UpsertTable(ctx, domain.Table{Name: "Terasa"}))
	got, err := sut.GetTable(ctx, "Terasa")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.OrderCount)

	assert.ErrorIs(t, sut.UpsertTable(ctx, domain.Table{Name: ""}), ErrInvalidName)
	assert.ErrorIs(t, sut.UpsertTable(ctx, domain.Table{Name: "X", OrderCount: -1}), ErrInvalidOrderCount)

	tables, err := sut.ListTables(ctx)
	require.NoError(t, err)
	assert.Len(t, tables, 3)

	require.NoError(t, sut.DeleteTable(ctx, "Terasa"))
	_, err = sut.GetTable(ctx, "Terasa")
	assert.ErrorIs(t, err, repository.ErrTableNotFound)
}
