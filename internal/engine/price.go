package engine

import (
	"github.com/shopspring/decimal"

	"github.com/efreitasn/matchbook/internal/domain"
)

var two = decimal.NewFromInt(2)

// MidPrice returns (buy + sell) / 2 rounded half-to-even, keeping the
// number of decimal places of the sum.
func MidPrice(buy, sell decimal.Decimal) decimal.Decimal {
	sum := buy.Add(sell)
	var places int32
	if exp := sum.Exponent(); exp < 0 {
		places = -exp
	}
	return sum.Div(two).RoundBank(places)
}

// referencePrice returns the first limit price found among the best order
// of side and the best order of the opposite side, or zero.
// The caller must hold ob.mu.
func referencePrice(ob *OrderBook, side domain.OrderSide) decimal.Decimal {
	if best, ok := ob.Best(side); ok && !best.IsMarket() {
		return *best.Price
	}
	if best, ok := ob.Best(side.Opposite()); ok && !best.IsMarket() {
		return *best.Price
	}
	return decimal.Zero
}

// bookPrice derives the instrument price from the current queue heads.
// The caller must hold ob.mu.
func bookPrice(ob *OrderBook) decimal.Decimal {
	return MidPrice(
		referencePrice(ob, domain.OrderSideBuy),
		referencePrice(ob, domain.OrderSideSell),
	)
}
