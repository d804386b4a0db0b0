package domain

import (
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide indicates whether an order buys or sells.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Valid reports whether s is BUY or SELL.
func (s OrderSide) Valid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

// Opposite returns the other side of the book.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// Order represents a buy or sell instruction against one instrument.
// Everything except the quantity cell is immutable once the order is
// admitted; the book owns all quantity mutation.
type Order struct {
	ID           string
	InstrumentID string
	TraderID     string
	Side         OrderSide
	Price        *decimal.Decimal // nil for market orders
	CreatedAt    time.Time

	quantity *Quantity
	seq      atomic.Uint64
}

// NewOrder builds an order with its own quantity cell.
func NewOrder(id, instrumentID, traderID string, side OrderSide, price *decimal.Decimal, quantity decimal.Decimal) *Order {
	return &Order{
		ID:           id,
		InstrumentID: instrumentID,
		TraderID:     traderID,
		Side:         side,
		Price:        price,
		CreatedAt:    time.Now(),
		quantity:     NewQuantity(quantity),
	}
}

// IsMarket reports whether the order carries no limit price.
func (o *Order) IsMarket() bool {
	return o.Price == nil
}

// Quantity returns the remaining quantity.
func (o *Order) Quantity() decimal.Decimal {
	return o.quantity.Get()
}

// DecrementBy atomically reduces the remaining quantity.
func (o *Order) DecrementBy(amount decimal.Decimal) (decimal.Decimal, error) {
	if o.quantity == nil {
		return decimal.Zero, ErrQuantityUnderflow
	}
	return o.quantity.DecrementBy(amount)
}

// Seq returns the arrival sequence assigned on admission.
func (o *Order) Seq() uint64 {
	return o.seq.Load()
}

// SetSeq overwrites the arrival sequence. The book sets it on admission,
// before the order enters a side-queue.
func (o *Order) SetSeq(seq uint64) {
	o.seq.Store(seq)
}

// PriceOrZero returns the limit price, or zero for market orders.
func (o *Order) PriceOrZero() decimal.Decimal {
	if o.Price == nil {
		return decimal.Zero
	}
	return *o.Price
}
