package store

import (
	"sort"
	"sync"

	"github.com/efreitasn/matchbook/internal/domain"
)

// OrderStore is the book's global index of active orders, with a primary
// index by order id and a secondary index by trader id. An order is present
// exactly while it rests in a side-queue.
type OrderStore struct {
	mu           sync.RWMutex
	orders       map[string]*domain.Order
	traderOrders map[string]map[string]*domain.Order // trader_id → order_id → order
}

// NewOrderStore creates an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders:       make(map[string]*domain.Order),
		traderOrders: make(map[string]map[string]*domain.Order),
	}
}

// Create adds an order to both indices. The check and the insert are one
// atomic step: it returns *domain.DuplicateOrderError, leaving the store
// untouched, if the id is already present.
func (s *OrderStore) Create(o *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.ID]; exists {
		return &domain.DuplicateOrderError{OrderID: o.ID}
	}
	s.orders[o.ID] = o

	byTrader := s.traderOrders[o.TraderID]
	if byTrader == nil {
		byTrader = make(map[string]*domain.Order)
		s.traderOrders[o.TraderID] = byTrader
	}
	byTrader[o.ID] = o
	return nil
}

// Get retrieves an order by id. It returns
// domain.ErrOrderNotFound if the order does not exist.
func (s *OrderStore) Get(id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

// Contains returns true if an order with the given id is active.
func (s *OrderStore) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.orders[id]
	return ok
}

// Delete removes o from both indices if it is still the order stored
// under its id. It reports whether anything was removed.
func (s *OrderStore) Delete(o *domain.Order) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.orders[o.ID]
	if !ok || cur != o {
		return false
	}
	delete(s.orders, o.ID)
	if byTrader := s.traderOrders[o.TraderID]; byTrader != nil {
		delete(byTrader, o.ID)
		if len(byTrader) == 0 {
			delete(s.traderOrders, o.TraderID)
		}
	}
	return true
}

// ListByTrader returns the trader's active orders in arrival order.
func (s *OrderStore) ListByTrader(traderID string) []*domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byTrader := s.traderOrders[traderID]
	result := make([]*domain.Order, 0, len(byTrader))
	for _, o := range byTrader {
		result = append(result, o)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Seq() < result[j].Seq()
	})
	return result
}

// Len returns the number of active orders.
func (s *OrderStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.orders)
}
