package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrInstrumentNotFound = errors.New("instrument_not_found")
	ErrInstrumentExists   = errors.New("instrument_already_exists")
	ErrOrderNotFound      = errors.New("order_not_found")
	ErrDuplicateOrder     = errors.New("duplicate_order")
	ErrQuantityUnderflow  = errors.New("quantity_underflow")
)

// ValidationError represents a malformed or inadmissible order or instrument.
// OrderID is empty for instrument validation failures.
type ValidationError struct {
	OrderID string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// DuplicateOrderError is returned when an order id is already in the book.
type DuplicateOrderError struct {
	OrderID string
}

func (e *DuplicateOrderError) Error() string {
	return fmt.Sprintf("orderId=%s already exists", e.OrderID)
}

// Is lets errors.Is(err, ErrDuplicateOrder) match any DuplicateOrderError.
func (e *DuplicateOrderError) Is(target error) bool {
	return target == ErrDuplicateOrder
}

// StructuralError reports a malformed composite instrument definition.
type StructuralError struct {
	InstrumentID string
	Message      string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("instrumentId=%s %s", e.InstrumentID, e.Message)
}

// InvariantError signals that the book's indices and queues disagree.
// It should never be observed while admission and cleanup hold.
type InvariantError struct {
	Op  string
	Err error
}

func (e *InvariantError) Error() string {
	if e.Err == nil {
		return "invariant violated: " + e.Op
	}
	return "invariant violated: " + e.Op + ": " + e.Err.Error()
}

func (e *InvariantError) Unwrap() error {
	return e.Err
}
