package engine

import (
	"sort"
	"sync"

	"github.com/google/btree"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/matchbook/internal/domain"
)

// PriceLevel represents an aggregated price level in the order book.
// Price is nil for the market-order level.
type PriceLevel struct {
	Price         *decimal.Decimal
	TotalQuantity decimal.Decimal
	OrderCount    int
}

// buyLess defines ordering for the buy side: market orders first, then
// price descending, then arrival sequence ascending. Min() returns the
// best buy.
func buyLess(a, b *domain.Order) bool {
	if c := comparePrice(a.Price, b.Price); c != 0 {
		return c > 0
	}
	return a.Seq() < b.Seq()
}

// sellLess defines ordering for the sell side: market orders first, then
// price ascending, then arrival sequence ascending. Min() returns the
// best sell.
func sellLess(a, b *domain.Order) bool {
	if c := comparePrice(a.Price, b.Price); c != 0 {
		if a.Price == nil || b.Price == nil {
			return c > 0
		}
		return c < 0
	}
	return a.Seq() < b.Seq()
}

// comparePrice orders prices with nil (market) above every limit price.
func comparePrice(a, b *decimal.Decimal) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return a.Cmp(*b)
}

// OrderBook maintains the buy and sell queues for a single instrument
// using B-trees. The mutex serialises every matching decision that
// touches the instrument.
type OrderBook struct {
	instrumentID string
	mu           sync.Mutex
	buys         *btree.BTreeG[*domain.Order]
	sells        *btree.BTreeG[*domain.Order]
}

// NewOrderBook creates an order book for the given instrument.
func NewOrderBook(instrumentID string) *OrderBook {
	const degree = 32
	return &OrderBook{
		instrumentID: instrumentID,
		buys:         btree.NewG[*domain.Order](degree, buyLess),
		sells:        btree.NewG[*domain.Order](degree, sellLess),
	}
}

// InstrumentID returns the instrument this book belongs to.
func (ob *OrderBook) InstrumentID() string {
	return ob.instrumentID
}

func (ob *OrderBook) side(s domain.OrderSide) *btree.BTreeG[*domain.Order] {
	if s == domain.OrderSideBuy {
		return ob.buys
	}
	return ob.sells
}

// Insert adds an order to the queue for its side.
func (ob *OrderBook) Insert(o *domain.Order) {
	ob.side(o.Side).ReplaceOrInsert(o)
}

// Remove deletes an order from its side's queue and reports whether it
// was present.
func (ob *OrderBook) Remove(o *domain.Order) bool {
	_, ok := ob.side(o.Side).Delete(o)
	return ok
}

// Best returns the highest-priority order on a side.
func (ob *OrderBook) Best(s domain.OrderSide) (*domain.Order, bool) {
	return ob.side(s).Min()
}

// Len returns the number of resting orders on a side.
func (ob *OrderBook) Len(s domain.OrderSide) int {
	return ob.side(s).Len()
}

// Empty reports whether both sides are empty.
func (ob *OrderBook) Empty() bool {
	return ob.buys.Len() == 0 && ob.sells.Len() == 0
}

// Walk iterates a side in priority order. The callback returns true to
// continue, false to stop.
func (ob *OrderBook) Walk(s domain.OrderSide, fn func(*domain.Order) bool) {
	ob.side(s).Ascend(fn)
}

// TopLevels returns up to n aggregated price levels of a side in
// priority order.
func (ob *OrderBook) TopLevels(s domain.OrderSide, n int) []PriceLevel {
	if n <= 0 {
		return nil
	}
	levels := make([]PriceLevel, 0, n)
	ob.side(s).Ascend(func(o *domain.Order) bool {
		if len(levels) > 0 && comparePrice(levels[len(levels)-1].Price, o.Price) == 0 {
			last := &levels[len(levels)-1]
			last.TotalQuantity = last.TotalQuantity.Add(o.Quantity())
			last.OrderCount++
			return true
		}
		if len(levels) >= n {
			return false
		}
		levels = append(levels, PriceLevel{
			Price:         o.Price,
			TotalQuantity: o.Quantity(),
			OrderCount:    1,
		})
		return true
	})
	return levels
}

// BookManager is a thread-safe map of instrument id → OrderBook.
type BookManager struct {
	mu    sync.RWMutex
	books map[string]*OrderBook
}

// NewBookManager creates a new BookManager.
func NewBookManager() *BookManager {
	return &BookManager{
		books: make(map[string]*OrderBook),
	}
}

// Get returns the order book for an instrument, or nil if none exists.
func (bm *BookManager) Get(instrumentID string) *OrderBook {
	bm.mu.RLock()
	defer bm.mu.RUnlock()
	return bm.books[instrumentID]
}

// GetOrCreate returns the order book for the given instrument, creating
// one if it doesn't already exist.
func (bm *BookManager) GetOrCreate(instrumentID string) *OrderBook {
	bm.mu.RLock()
	book, ok := bm.books[instrumentID]
	bm.mu.RUnlock()
	if ok {
		return book
	}

	bm.mu.Lock()
	defer bm.mu.Unlock()
	// Double-check after acquiring write lock.
	if book, ok = bm.books[instrumentID]; ok {
		return book
	}
	book = NewOrderBook(instrumentID)
	bm.books[instrumentID] = book
	return book
}

// IDs returns the ids of all instruments that have a book, sorted.
func (bm *BookManager) IDs() []string {
	bm.mu.RLock()
	defer bm.mu.RUnlock()

	ids := make([]string, 0, len(bm.books))
	for id := range bm.books {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// lockBooks locks the books of ids in ascending id order, creating books
// as needed, and returns them keyed by id with the matching unlock func.
// Ascending order keeps overlapping composite passes deadlock-free.
func (bm *BookManager) lockBooks(ids []string) (map[string]*OrderBook, func()) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	books := make(map[string]*OrderBook, len(sorted))
	locked := make([]*OrderBook, 0, len(sorted))
	for _, id := range sorted {
		if _, dup := books[id]; dup {
			continue
		}
		b := bm.GetOrCreate(id)
		b.mu.Lock()
		books[id] = b
		locked = append(locked, b)
	}
	return books, func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].mu.Unlock()
		}
	}
}
