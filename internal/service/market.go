package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/matchbook/internal/domain"
	"github.com/efreitasn/matchbook/internal/engine"
	"github.com/efreitasn/matchbook/internal/store"
)

const maxBookDepth = 50

// BookResponse is an aggregated snapshot of one instrument's book.
type BookResponse struct {
	InstrumentID string
	Price        decimal.Decimal
	Bids         []engine.PriceLevel
	Asks         []engine.PriceLevel
	Spread       *decimal.Decimal // nil if either side is empty or led by a market order
	SnapshotAt   time.Time
}

// MarketService handles book depth, trade history and manual matching
// passes.
type MarketService struct {
	matcher    *engine.Matcher
	tradeStore *store.TradeStore
}

// NewMarketService creates a new MarketService.
func NewMarketService(matcher *engine.Matcher, tradeStore *store.TradeStore) *MarketService {
	return &MarketService{
		matcher:    matcher,
		tradeStore: tradeStore,
	}
}

// GetBook returns the top depth price levels of each side of an
// instrument's book together with its current price.
func (s *MarketService) GetBook(instrumentID string, depth int) (*BookResponse, error) {
	inst, err := s.matcher.GetInstrument(instrumentID)
	if err != nil {
		return nil, err
	}

	if depth < 1 || depth > maxBookDepth {
		return nil, &domain.ValidationError{
			Message: "depth must be between 1 and 50",
		}
	}

	bids, asks := s.matcher.Depth(instrumentID, depth)
	resp := &BookResponse{
		InstrumentID: instrumentID,
		Price:        inst.Price,
		Bids:         bids,
		Asks:         asks,
		SnapshotAt:   time.Now(),
	}

	if len(bids) > 0 && len(asks) > 0 && bids[0].Price != nil && asks[0].Price != nil {
		spread := asks[0].Price.Sub(*bids[0].Price)
		resp.Spread = &spread
	}

	return resp, nil
}

// GetTrades returns every trade touching an instrument in execution order.
func (s *MarketService) GetTrades(instrumentID string) ([]*domain.Trade, error) {
	if _, err := s.matcher.GetInstrument(instrumentID); err != nil {
		return nil, err
	}
	return s.tradeStore.GetByInstrument(instrumentID), nil
}

// Process runs one matching pass over an instrument and returns the
// instrument with its price afterwards.
func (s *MarketService) Process(instrumentID string) (domain.Instrument, error) {
	if err := s.matcher.ProcessOrderBook(instrumentID); err != nil {
		return domain.Instrument{}, err
	}
	return s.matcher.GetInstrument(instrumentID)
}
