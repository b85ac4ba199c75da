package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/josko3567/oby-server/internal/cache"
	"github.com/josko3567/oby-server/internal/domain"
	"github.com/josko3567/oby-server/internal/money"
	"github.com/josko3567/oby-server/internal/repository"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	m          sync.RWMutex
	offers     []domain.Offer
	tables     map[string]domain.Table
	orders     []domain.Order
	err        error
	listCalls  atomic.Int32
	listGate   chan struct{}
	lastFilter domain.OrderFilter
}

func newMockRepository(t *testing.T) *mockRepository {
	return &mockRepository{
		offers: []domain.Offer{
			{ID: "Kava", Description: "Espresso", UnitPrice: mustMoney(t, "1.50")},
			{ID: "Cedevita", UnitPrice: mustMoney(t, "2.40")},
			{ID: "lemonade", UnitPrice: mustMoney(t, "2.99")},
			{ID: "biscuit", UnitPrice: mustMoney(t, "0.34")},
		},
		tables: map[string]domain.Table{
			"Stol 1": {Name: "Stol 1"},
			"Stol 2": {Name: "Stol 2", OrderCount: 3},
		},
	}
}

func mustMoney(t *testing.T, s string) money.Money {
	t.Helper()
	m, err := money.Parse(s)
	require.NoError(t, err)
	return m
}

func (m *mockRepository) ListOffers(context.Context) ([]domain.Offer, error) {
	m.listCalls.Add(1)
	if m.listGate != nil {
		<-m.listGate
	}
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Offer, len(m.offers))
	copy(out, m.offers)
	return out, nil
}

func (m *mockRepository) GetOffer(_ context.Context, name string) (domain.Offer, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	for _, o := range m.offers {
		if o.ID == name {
			return o, nil
		}
	}
	return domain.Offer{}, repository.ErrOfferNotFound
}

func (m *mockRepository) UpsertOffer(_ context.Context, offer domain.Offer) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	for i, o := range m.offers {
		if o.ID == offer.ID {
			m.offers[i] = offer
			return nil
		}
	}
	m.offers = append(m.offers, offer)
	return nil
}

func (m *mockRepository) DeleteOffer(_ context.Context, name string) error {
	m.m.Lock()
	defer m.m.Unlock()
	for i, o := range m.offers {
		if o.ID == name {
			m.offers = append(m.offers[:i], m.offers[i+1:]...)
			return nil
		}
	}
	return repository.ErrOfferNotFound
}

func (m *mockRepository) ListTables(context.Context) ([]domain.Table, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	out := make([]domain.Table, 0, len(m.tables))
	for _, t := range m.tables {
		out = append(out, t)
	}
	return out, nil
}

func (m *mockRepository) GetTable(_ context.Context, name string) (domain.Table, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	t, ok := m.tables[name]
	if !ok {
		return domain.Table{}, repository.ErrTableNotFound
	}
	return t, nil
}

func (m *mockRepository) UpsertTable(_ context.Context, table domain.Table) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.tables[table.Name] = table
	return nil
}

func (m *mockRepository) DeleteTable(_ context.Context, name string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if _, ok := m.tables[name]; !ok {
		return repository.ErrTableNotFound
	}
	delete(m.tables, name)
	return nil
}

func (m *mockRepository) CreateOrder(_ context.Context, order *domain.Order) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	t, ok := m.tables[order.ID.Table]
	if !ok {
		return repository.ErrTableNotFound
	}
	t.OrderCount++
	m.tables[t.Name] = t
	order.ID.Count = t.OrderCount
	m.orders = append(m.orders, *order)
	return nil
}

func (m *mockRepository) GetOrder(_ context.Context, id domain.OrderID) (domain.Order, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	for _, o := range m.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return domain.Order{}, repository.ErrOrderNotFound
}

func (m *mockRepository) ListOrders(_ context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.lastFilter = filter
	return m.orders, nil
}

func (m *mockRepository) DeleteOrder(_ context.Context, id domain.OrderID) error {
	m.m.Lock()
	defer m.m.Unlock()
	for i, o := range m.orders {
		if o.ID == id {
			m.orders = append(m.orders[:i], m.orders[i+1:]...)
			return nil
		}
	}
	return repository.ErrOrderNotFound
}

func (m *mockRepository) FinishOrder(_ context.Context, id domain.OrderID) (domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	for i, o := range m.orders {
		if o.ID == id {
			m.orders[i].Finished = true
			return m.orders[i], nil
		}
	}
	return domain.Order{}, repository.ErrOrderNotFound
}

type mockCache struct {
	m       sync.RWMutex
	offers  []domain.Offer
	err     error
	deletes int
	sets    int

	// setStarted is signalled when Set is entered; Set then waits on setGate.
	setStarted chan struct{}
	setGate    chan struct{}
}

func (m *mockCache) Get(context.Context) ([]domain.Offer, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.offers == nil {
		return nil, cache.ErrCacheMiss
	}
	return m.offers, nil
}

func (m *mockCache) Set(_ context.Context, offers []domain.Offer) error {
	if m.setStarted != nil {
		m.setStarted <- struct{}{}
	}
	if m.setGate != nil {
		<-m.setGate
	}
	m.m.Lock()
	defer m.m.Unlock()
	m.offers = offers
	m.sets++
	return nil
}

func (m *mockCache) Delete(context.Context) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.offers = nil
	m.deletes++
	return nil
}

func (m *mockCache) getOffers() []domain.Offer {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.offers
}

func (m *mockCache) setCount() int {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.sets
}

func (m *mockCache) deleteCount() int {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.deletes
}
