package domain

import (
	"sync/atomic"

	"github.com/shopspring/decimal"
)

// Quantity is an atomic decimal cell. The only mutation is DecrementBy,
// which never lets the value go below zero.
type Quantity struct {
	v atomic.Pointer[decimal.Decimal]
}

// NewQuantity returns a cell holding q.
func NewQuantity(q decimal.Decimal) *Quantity {
	c := &Quantity{}
	c.v.Store(&q)
	return c
}

// Get returns the current value, or zero for a cell that was never set.
func (q *Quantity) Get() decimal.Decimal {
	if q == nil {
		return decimal.Zero
	}
	p := q.v.Load()
	if p == nil {
		return decimal.Zero
	}
	return *p
}

// DecrementBy subtracts amount and returns the new value. It returns
// ErrQuantityUnderflow, leaving the cell untouched, when amount exceeds
// the current value.
func (q *Quantity) DecrementBy(amount decimal.Decimal) (decimal.Decimal, error) {
	for {
		old := q.v.Load()
		cur := decimal.Zero
		if old != nil {
			cur = *old
		}
		if amount.GreaterThan(cur) {
			return cur, ErrQuantityUnderflow
		}
		next := cur.Sub(amount)
		if q.v.CompareAndSwap(old, &next) {
			return next, nil
		}
	}
}
