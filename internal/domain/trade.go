package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fill is one order's participation in a trade.
type Fill struct {
	OrderID      string
	InstrumentID string
	Side         OrderSide
	Price        *decimal.Decimal // the order's limit price, nil for market orders
	Quantity     decimal.Decimal
}

// Trade represents a matched execution. A simple trade has one buy and one
// sell fill; a composite trade has the composite order's fill followed by
// one fill per leg.
type Trade struct {
	TradeID      string
	InstrumentID string
	Composite    bool
	Quantity     decimal.Decimal
	Fills        []Fill
	ExecutedAt   time.Time
}
