package service

import (
	"regexp"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/matchbook/internal/domain"
	"github.com/efreitasn/matchbook/internal/engine"
)

var traderIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// SubmitOrderRequest represents the input for order submission.
type SubmitOrderRequest struct {
	ID           string // generated when empty
	InstrumentID string
	TraderID     string
	Side         domain.OrderSide
	Price        *decimal.Decimal // nil for market orders
	Quantity     decimal.Decimal
}

// OrderResult is the state of an order right after submission.
// Active is false when the order filled completely during admission.
type OrderResult struct {
	Order  *domain.Order
	Active bool
}

// OrderService handles order submission, retrieval, cancellation and
// listing.
type OrderService struct {
	matcher *engine.Matcher
}

// NewOrderService creates a new OrderService.
func NewOrderService(matcher *engine.Matcher) *OrderService {
	return &OrderService{matcher: matcher}
}

// SubmitOrder builds the order and hands it to the matching engine, which
// validates, admits and matches it.
func (s *OrderService) SubmitOrder(req SubmitOrderRequest) (*OrderResult, error) {
	if req.TraderID != "" && !traderIDRegex.MatchString(req.TraderID) {
		return nil, &domain.ValidationError{
			OrderID: req.ID,
			Message: "trader_id must match ^[a-zA-Z0-9_-]{1,64}$",
		}
	}

	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}

	order := domain.NewOrder(id, req.InstrumentID, req.TraderID, req.Side, req.Price, req.Quantity)
	if err := s.matcher.AddOrder(order); err != nil {
		return nil, err
	}

	return &OrderResult{
		Order:  order,
		Active: s.matcher.ContainsOrder(order.ID),
	}, nil
}

// GetOrder retrieves an active order by ID.
func (s *OrderService) GetOrder(orderID string) (*domain.Order, error) {
	return s.matcher.GetOrder(orderID)
}

// CancelOrder removes an active order from the book. It returns
// domain.ErrOrderNotFound if the order is not active.
func (s *OrderService) CancelOrder(orderID string) (*domain.Order, error) {
	order, ok := s.matcher.CancelOrder(orderID)
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

// ListOrders returns a trader's active orders in arrival order.
func (s *OrderService) ListOrders(traderID string) ([]*domain.Order, error) {
	if !traderIDRegex.MatchString(traderID) {
		return nil, &domain.ValidationError{
			Message: "trader_id must match ^[a-zA-Z0-9_-]{1,64}$",
		}
	}
	return s.matcher.OrdersByTrader(traderID), nil
}
