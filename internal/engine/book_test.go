package engine

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/matchbook/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func pricePtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// makeOrder builds an order with a fixed arrival sequence. An empty price
// makes a market order.
func makeOrder(id string, side domain.OrderSide, price string, qty string, seq uint64) *domain.Order {
	var p *decimal.Decimal
	if price != "" {
		p = pricePtr(price)
	}
	o := domain.NewOrder(id, "FI1", "trader", side, p, dec(qty))
	o.SetSeq(seq)
	return o
}

func TestBuyLess_PriceDescending(t *testing.T) {
	a := makeOrder("a", domain.OrderSideBuy, "200", "1", 2)
	b := makeOrder("b", domain.OrderSideBuy, "100", "1", 1)
	if !buyLess(a, b) {
		t.Error("expected higher price to be less on buy side")
	}
	if buyLess(b, a) {
		t.Error("expected lower price to not be less on buy side")
	}
}

func TestBuyLess_SeqAscending(t *testing.T) {
	a := makeOrder("a", domain.OrderSideBuy, "100", "1", 1)
	b := makeOrder("b", domain.OrderSideBuy, "100.00", "1", 2)
	if !buyLess(a, b) {
		t.Error("expected earlier arrival to be less on buy side at same price")
	}
	if buyLess(b, a) {
		t.Error("expected later arrival to not be less on buy side at same price")
	}
}

func TestBuyLess_MarketFirst(t *testing.T) {
	market := makeOrder("m", domain.OrderSideBuy, "", "1", 5)
	limit := makeOrder("l", domain.OrderSideBuy, "1000000", "1", 1)
	if !buyLess(market, limit) {
		t.Error("expected market order ahead of any limit buy")
	}
	if buyLess(limit, market) {
		t.Error("expected limit buy to not be ahead of market order")
	}
}

func TestSellLess_PriceAscending(t *testing.T) {
	a := makeOrder("a", domain.OrderSideSell, "100", "1", 2)
	b := makeOrder("b", domain.OrderSideSell, "200", "1", 1)
	if !sellLess(a, b) {
		t.Error("expected lower price to be less on sell side")
	}
	if sellLess(b, a) {
		t.Error("expected higher price to not be less on sell side")
	}
}

func TestSellLess_MarketFirst(t *testing.T) {
	market := makeOrder("m", domain.OrderSideSell, "", "1", 5)
	limit := makeOrder("l", domain.OrderSideSell, "0.01", "1", 1)
	if !sellLess(market, limit) {
		t.Error("expected market order ahead of any limit sell")
	}
	if sellLess(limit, market) {
		t.Error("expected limit sell to not be ahead of market order")
	}
}

func TestSellLess_MarketOrdersFIFO(t *testing.T) {
	a := makeOrder("a", domain.OrderSideSell, "", "1", 1)
	b := makeOrder("b", domain.OrderSideSell, "", "1", 2)
	if !sellLess(a, b) || sellLess(b, a) {
		t.Error("expected market orders to keep arrival order")
	}
}

func TestOrderBook_InsertAndBest(t *testing.T) {
	ob := NewOrderBook("FI1")
	ob.Insert(makeOrder("b1", domain.OrderSideBuy, "100", "10", 1))
	ob.Insert(makeOrder("b2", domain.OrderSideBuy, "200", "5", 2))
	ob.Insert(makeOrder("s1", domain.OrderSideSell, "300", "5", 3))
	ob.Insert(makeOrder("s2", domain.OrderSideSell, "250", "5", 4))

	if best, ok := ob.Best(domain.OrderSideBuy); !ok || best.ID != "b2" {
		t.Errorf("expected best buy b2, got %v", best)
	}
	if best, ok := ob.Best(domain.OrderSideSell); !ok || best.ID != "s2" {
		t.Errorf("expected best sell s2, got %v", best)
	}
	if ob.Len(domain.OrderSideBuy) != 2 || ob.Len(domain.OrderSideSell) != 2 {
		t.Errorf("expected 2/2 orders, got %d/%d", ob.Len(domain.OrderSideBuy), ob.Len(domain.OrderSideSell))
	}
}

func TestOrderBook_EmptyBest(t *testing.T) {
	ob := NewOrderBook("FI1")
	if _, ok := ob.Best(domain.OrderSideBuy); ok {
		t.Error("expected no best buy on empty book")
	}
	if _, ok := ob.Best(domain.OrderSideSell); ok {
		t.Error("expected no best sell on empty book")
	}
	if !ob.Empty() {
		t.Error("expected Empty() on new book")
	}
}

func TestOrderBook_Remove(t *testing.T) {
	ob := NewOrderBook("FI1")
	o1 := makeOrder("o1", domain.OrderSideBuy, "100", "10", 1)
	o2 := makeOrder("o2", domain.OrderSideBuy, "200", "5", 2)
	ob.Insert(o1)
	ob.Insert(o2)

	if !ob.Remove(o2) {
		t.Fatal("expected Remove(o2) = true")
	}
	best, ok := ob.Best(domain.OrderSideBuy)
	if !ok || best.ID != "o1" {
		t.Errorf("expected best buy o1 after removing o2, got %v", best)
	}
	if ob.Remove(o2) {
		t.Error("expected second Remove(o2) = false")
	}
}

func TestOrderBook_RemoveNotPresent(t *testing.T) {
	ob := NewOrderBook("FI1")
	if ob.Remove(makeOrder("x", domain.OrderSideSell, "1", "1", 1)) {
		t.Error("expected Remove on empty book to report false")
	}
}

func TestOrderBook_Walk(t *testing.T) {
	ob := NewOrderBook("FI1")
	ob.Insert(makeOrder("s3", domain.OrderSideSell, "300", "1", 1))
	ob.Insert(makeOrder("s1", domain.OrderSideSell, "100", "1", 2))
	ob.Insert(makeOrder("m", domain.OrderSideSell, "", "1", 3))
	ob.Insert(makeOrder("s2", domain.OrderSideSell, "100", "1", 4))

	var got []string
	ob.Walk(domain.OrderSideSell, func(o *domain.Order) bool {
		got = append(got, o.ID)
		return true
	})
	want := []string{"m", "s1", "s2", "s3"}
	if len(got) != len(want) {
		t.Fatalf("walk = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("walk[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestOrderBook_TopLevels(t *testing.T) {
	ob := NewOrderBook("FI1")
	// 3 buys at 2 price levels: 200 (2 orders) and 100 (1 order).
	ob.Insert(makeOrder("b1", domain.OrderSideBuy, "200", "10", 1))
	ob.Insert(makeOrder("b2", domain.OrderSideBuy, "200", "5", 2))
	ob.Insert(makeOrder("b3", domain.OrderSideBuy, "100", "20", 3))

	levels := ob.TopLevels(domain.OrderSideBuy, 5)
	if len(levels) != 2 {
		t.Fatalf("expected 2 price levels, got %d", len(levels))
	}
	if !levels[0].Price.Equal(dec("200")) || !levels[0].TotalQuantity.Equal(dec("15")) || levels[0].OrderCount != 2 {
		t.Errorf("level 0: got price=%s qty=%s count=%d", levels[0].Price, levels[0].TotalQuantity, levels[0].OrderCount)
	}
	if !levels[1].Price.Equal(dec("100")) || !levels[1].TotalQuantity.Equal(dec("20")) || levels[1].OrderCount != 1 {
		t.Errorf("level 1: got price=%s qty=%s count=%d", levels[1].Price, levels[1].TotalQuantity, levels[1].OrderCount)
	}
}

func TestOrderBook_TopLevels_LimitN(t *testing.T) {
	ob := NewOrderBook("FI1")
	ob.Insert(makeOrder("s1", domain.OrderSideSell, "300", "1", 1))
	ob.Insert(makeOrder("s2", domain.OrderSideSell, "200", "1", 2))
	ob.Insert(makeOrder("s3", domain.OrderSideSell, "100", "1", 3))

	levels := ob.TopLevels(domain.OrderSideSell, 2)
	if len(levels) != 2 {
		t.Fatalf("expected 2 levels, got %d", len(levels))
	}
	if !levels[0].Price.Equal(dec("100")) || !levels[1].Price.Equal(dec("200")) {
		t.Errorf("expected prices [100, 200], got [%s, %s]", levels[0].Price, levels[1].Price)
	}
}

func TestOrderBook_TopLevels_MarketLevel(t *testing.T) {
	ob := NewOrderBook("FI1")
	ob.Insert(makeOrder("m1", domain.OrderSideBuy, "", "3", 1))
	ob.Insert(makeOrder("m2", domain.OrderSideBuy, "", "4", 2))
	ob.Insert(makeOrder("b1", domain.OrderSideBuy, "50", "1", 3))

	levels := ob.TopLevels(domain.OrderSideBuy, 10)
	if len(levels) != 2 {
		t.Fatalf("expected 2 levels, got %d", len(levels))
	}
	if levels[0].Price != nil || !levels[0].TotalQuantity.Equal(dec("7")) || levels[0].OrderCount != 2 {
		t.Errorf("market level: got price=%v qty=%s count=%d", levels[0].Price, levels[0].TotalQuantity, levels[0].OrderCount)
	}
}

func TestOrderBook_TopLevels_Empty(t *testing.T) {
	ob := NewOrderBook("FI1")
	if levels := ob.TopLevels(domain.OrderSideBuy, 5); len(levels) != 0 {
		t.Errorf("expected no levels, got %d", len(levels))
	}
	if levels := ob.TopLevels(domain.OrderSideBuy, 0); levels != nil {
		t.Errorf("expected nil for n=0, got %v", levels)
	}
}

func TestBookManager_GetOrCreate(t *testing.T) {
	bm := NewBookManager()
	if bm.Get("FI1") != nil {
		t.Fatal("expected no book before GetOrCreate")
	}
	b1 := bm.GetOrCreate("FI1")
	b2 := bm.GetOrCreate("FI1")
	if b1 != b2 {
		t.Error("expected the same book for the same instrument")
	}
	if b1.InstrumentID() != "FI1" {
		t.Errorf("InstrumentID() = %s, want FI1", b1.InstrumentID())
	}
	if bm.Get("FI1") != b1 {
		t.Error("Get returned a different book")
	}
}

func TestBookManager_GetOrCreate_Concurrent(t *testing.T) {
	bm := NewBookManager()
	books := make([]*OrderBook, 50)

	var wg sync.WaitGroup
	for i := range books {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			books[n] = bm.GetOrCreate("FI1")
		}(i)
	}
	wg.Wait()

	for i, b := range books {
		if b != books[0] {
			t.Fatalf("goroutine %d got a different book", i)
		}
	}
}

func TestBookManager_IDs(t *testing.T) {
	bm := NewBookManager()
	bm.GetOrCreate("B")
	bm.GetOrCreate("A")
	bm.GetOrCreate("C")

	ids := bm.IDs()
	if len(ids) != 3 || ids[0] != "A" || ids[1] != "B" || ids[2] != "C" {
		t.Errorf("IDs() = %v, want [A B C]", ids)
	}
}

func TestBookManager_LockBooks_Dedup(t *testing.T) {
	bm := NewBookManager()
	books, unlock := bm.lockBooks([]string{"C", "A", "A"})
	if len(books) != 2 {
		t.Errorf("expected 2 locked books, got %d", len(books))
	}
	unlock()

	// All books must be unlocked again.
	for _, id := range []string{"A", "C"} {
		b := bm.Get(id)
		if !b.mu.TryLock() {
			t.Errorf("book %s still locked after unlock", id)
			continue
		}
		b.mu.Unlock()
	}
}
