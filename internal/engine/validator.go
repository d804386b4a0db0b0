package engine

import (
	"fmt"

	"github.com/efreitasn/matchbook/internal/domain"
)

// OrderValidator checks orders before admission. Rules are evaluated in
// order and the first failure wins.
type OrderValidator struct {
	instruments InstrumentSource
}

// NewOrderValidator creates a validator that resolves instrument ids
// against the given source.
func NewOrderValidator(instruments InstrumentSource) *OrderValidator {
	return &OrderValidator{instruments: instruments}
}

// Validate returns a *domain.ValidationError describing the first rule o
// violates, or nil.
func (v *OrderValidator) Validate(o *domain.Order) error {
	if o == nil || o.ID == "" {
		return &domain.ValidationError{Message: "Order id is missing"}
	}
	if !o.Side.Valid() {
		return invalid(o.ID, "orderId=%s type is missing", o.ID)
	}
	if o.InstrumentID == "" {
		return invalid(o.ID, "orderId=%s financial instrument id is missing", o.ID)
	}
	if _, err := v.instruments.Get(o.InstrumentID); err != nil {
		return invalid(o.ID, "orderId=%s unknown financialInstrumentId=%s", o.ID, o.InstrumentID)
	}
	if o.Price != nil && o.Price.IsNegative() {
		return invalid(o.ID, "orderId=%s price can not be negative", o.ID)
	}
	if !o.Quantity().IsPositive() {
		return invalid(o.ID, "orderId=%s quantity must be positive", o.ID)
	}
	return nil
}

func invalid(orderID, format string, args ...any) error {
	return &domain.ValidationError{OrderID: orderID, Message: fmt.Sprintf(format, args...)}
}
