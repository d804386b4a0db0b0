package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/matchbook/internal/domain"
	"github.com/efreitasn/matchbook/internal/service"
)

// OrderHandler handles HTTP requests for order and trader endpoints.
type OrderHandler struct {
	orderSvc *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// submitOrderRequest is the JSON request body for POST /orders.
// Decimals are accepted as JSON strings or numbers.
type submitOrderRequest struct {
	OrderID      string           `json:"order_id"`
	InstrumentID string           `json:"instrument_id"`
	TraderID     string           `json:"trader_id"`
	Side         string           `json:"side"`
	Price        *decimal.Decimal `json:"price"`
	Quantity     decimal.Decimal  `json:"quantity"`
}

// orderResponse is the JSON representation of an order. Price is null
// for market orders; Quantity is the remaining quantity.
type orderResponse struct {
	OrderID      string           `json:"order_id"`
	InstrumentID string           `json:"instrument_id"`
	TraderID     string           `json:"trader_id"`
	Side         string           `json:"side"`
	Price        *decimal.Decimal `json:"price"`
	Quantity     decimal.Decimal  `json:"quantity"`
	CreatedAt    string           `json:"created_at"`
}

// submitOrderResponse adds whether the order is still resting on the book.
type submitOrderResponse struct {
	orderResponse
	Active bool `json:"active"`
}

// SubmitOrder handles POST /orders.
func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := h.orderSvc.SubmitOrder(service.SubmitOrderRequest{
		ID:           req.OrderID,
		InstrumentID: req.InstrumentID,
		TraderID:     req.TraderID,
		Side:         domain.OrderSide(req.Side),
		Price:        req.Price,
		Quantity:     req.Quantity,
	})
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, submitOrderResponse{
		orderResponse: buildOrderResponse(result.Order),
		Active:        result.Active,
	})
}

// GetOrder handles GET /orders/{order_id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderSvc.GetOrder(chi.URLParam(r, "order_id"))
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildOrderResponse(order))
}

// CancelOrder handles DELETE /orders/{order_id}.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderSvc.CancelOrder(chi.URLParam(r, "order_id"))
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildOrderResponse(order))
}

// listOrdersResponse is the JSON response for GET /traders/{trader_id}/orders.
type listOrdersResponse struct {
	TraderID string          `json:"trader_id"`
	Orders   []orderResponse `json:"orders"`
}

// ListTraderOrders handles GET /traders/{trader_id}/orders.
func (h *OrderHandler) ListTraderOrders(w http.ResponseWriter, r *http.Request) {
	traderID := chi.URLParam(r, "trader_id")

	orders, err := h.orderSvc.ListOrders(traderID)
	if err != nil {
		mapError(w, err)
		return
	}

	resp := listOrdersResponse{
		TraderID: traderID,
		Orders:   make([]orderResponse, len(orders)),
	}
	for i, o := range orders {
		resp.Orders[i] = buildOrderResponse(o)
	}

	WriteJSON(w, http.StatusOK, resp)
}

func buildOrderResponse(o *domain.Order) orderResponse {
	return orderResponse{
		OrderID:      o.ID,
		InstrumentID: o.InstrumentID,
		TraderID:     o.TraderID,
		Side:         string(o.Side),
		Price:        o.Price,
		Quantity:     o.Quantity(),
		CreatedAt:    o.CreatedAt.UTC().Format(timeFormat),
	}
}
