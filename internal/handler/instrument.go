package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/matchbook/internal/domain"
	"github.com/efreitasn/matchbook/internal/engine"
	"github.com/efreitasn/matchbook/internal/service"
)

const defaultBookDepth = 10

// InstrumentHandler handles HTTP requests for instrument endpoints.
type InstrumentHandler struct {
	instrumentSvc *service.InstrumentService
	marketSvc     *service.MarketService
}

// NewInstrumentHandler creates a new InstrumentHandler.
func NewInstrumentHandler(instrumentSvc *service.InstrumentService, marketSvc *service.MarketService) *InstrumentHandler {
	return &InstrumentHandler{
		instrumentSvc: instrumentSvc,
		marketSvc:     marketSvc,
	}
}

// registerInstrumentRequest is the JSON request body for POST /instruments.
type registerInstrumentRequest struct {
	InstrumentID string   `json:"instrument_id"`
	Symbol       string   `json:"symbol"`
	Kind         string   `json:"kind"`
	Children     []string `json:"children"`
}

// instrumentResponse is the JSON representation of an instrument.
type instrumentResponse struct {
	InstrumentID string          `json:"instrument_id"`
	Symbol       string          `json:"symbol"`
	Kind         string          `json:"kind"`
	Price        decimal.Decimal `json:"price"`
	Children     []string        `json:"children,omitempty"`
}

// bookLevelResponse is a single aggregated price level. A null price is
// the market order level.
type bookLevelResponse struct {
	Price         *decimal.Decimal `json:"price"`
	TotalQuantity decimal.Decimal  `json:"total_quantity"`
	OrderCount    int              `json:"order_count"`
}

// bookResponse is the JSON response for GET /instruments/{instrument_id}/book.
type bookResponse struct {
	InstrumentID string              `json:"instrument_id"`
	Price        decimal.Decimal     `json:"price"`
	Bids         []bookLevelResponse `json:"bids"`
	Asks         []bookLevelResponse `json:"asks"`
	Spread       *decimal.Decimal    `json:"spread"`
	SnapshotAt   string              `json:"snapshot_at"`
}

// fillResponse is one order's participation in a trade.
type fillResponse struct {
	OrderID      string           `json:"order_id"`
	InstrumentID string           `json:"instrument_id"`
	Side         string           `json:"side"`
	Price        *decimal.Decimal `json:"price"`
	Quantity     decimal.Decimal  `json:"quantity"`
}

// tradeResponse is a single executed trade.
type tradeResponse struct {
	TradeID      string          `json:"trade_id"`
	InstrumentID string          `json:"instrument_id"`
	Composite    bool            `json:"composite"`
	Quantity     decimal.Decimal `json:"quantity"`
	Fills        []fillResponse  `json:"fills"`
	ExecutedAt   string          `json:"executed_at"`
}

// tradesResponse is the JSON response for GET /instruments/{instrument_id}/trades.
type tradesResponse struct {
	InstrumentID string          `json:"instrument_id"`
	Trades       []tradeResponse `json:"trades"`
}

// List handles GET /instruments.
func (h *InstrumentHandler) List(w http.ResponseWriter, r *http.Request) {
	instruments := h.instrumentSvc.List()
	resp := make([]instrumentResponse, len(instruments))
	for i, inst := range instruments {
		resp[i] = buildInstrumentResponse(inst)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Register handles POST /instruments.
func (h *InstrumentHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerInstrumentRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	inst, err := h.instrumentSvc.Register(service.RegisterInstrumentRequest{
		ID:       req.InstrumentID,
		Symbol:   req.Symbol,
		Kind:     domain.InstrumentKind(req.Kind),
		Children: req.Children,
	})
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildInstrumentResponse(inst))
}

// Get handles GET /instruments/{instrument_id}.
func (h *InstrumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	inst, err := h.instrumentSvc.Get(chi.URLParam(r, "instrument_id"))
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildInstrumentResponse(inst))
}

// GetBook handles GET /instruments/{instrument_id}/book.
func (h *InstrumentHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	instrumentID := chi.URLParam(r, "instrument_id")

	// Parse depth query param (default 10, max 50).
	depth := defaultBookDepth
	if d := r.URL.Query().Get("depth"); d != "" {
		var err error
		depth, err = strconv.Atoi(d)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "depth must be a valid integer")
			return
		}
	}

	book, err := h.marketSvc.GetBook(instrumentID, depth)
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, bookResponse{
		InstrumentID: book.InstrumentID,
		Price:        book.Price,
		Bids:         buildLevels(book.Bids),
		Asks:         buildLevels(book.Asks),
		Spread:       book.Spread,
		SnapshotAt:   book.SnapshotAt.UTC().Format(timeFormat),
	})
}

// GetTrades handles GET /instruments/{instrument_id}/trades.
func (h *InstrumentHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	instrumentID := chi.URLParam(r, "instrument_id")

	trades, err := h.marketSvc.GetTrades(instrumentID)
	if err != nil {
		mapError(w, err)
		return
	}

	resp := tradesResponse{
		InstrumentID: instrumentID,
		Trades:       make([]tradeResponse, len(trades)),
	}
	for i, t := range trades {
		fills := make([]fillResponse, len(t.Fills))
		for j, f := range t.Fills {
			fills[j] = fillResponse{
				OrderID:      f.OrderID,
				InstrumentID: f.InstrumentID,
				Side:         string(f.Side),
				Price:        f.Price,
				Quantity:     f.Quantity,
			}
		}
		resp.Trades[i] = tradeResponse{
			TradeID:      t.TradeID,
			InstrumentID: t.InstrumentID,
			Composite:    t.Composite,
			Quantity:     t.Quantity,
			Fills:        fills,
			ExecutedAt:   t.ExecutedAt.UTC().Format(timeFormat),
		}
	}

	WriteJSON(w, http.StatusOK, resp)
}

// Process handles POST /instruments/{instrument_id}/process. It takes no
// body, so it is exempt from the JSON content type check.
func (h *InstrumentHandler) Process(w http.ResponseWriter, r *http.Request) {
	inst, err := h.marketSvc.Process(chi.URLParam(r, "instrument_id"))
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildInstrumentResponse(inst))
}

func buildInstrumentResponse(inst domain.Instrument) instrumentResponse {
	resp := instrumentResponse{
		InstrumentID: inst.ID,
		Symbol:       inst.Symbol,
		Kind:         string(inst.Kind),
		Price:        inst.Price,
	}
	if inst.IsComposite() {
		resp.Children = inst.ChildIDs()
	}
	return resp
}

func buildLevels(levels []engine.PriceLevel) []bookLevelResponse {
	result := make([]bookLevelResponse, len(levels))
	for i, pl := range levels {
		result[i] = bookLevelResponse{
			Price:         pl.Price,
			TotalQuantity: pl.TotalQuantity,
			OrderCount:    pl.OrderCount,
		}
	}
	return result
}
