package store

import (
	"sync"

	"github.com/efreitasn/matchbook/internal/domain"
)

// TradeStore is a thread-safe in-memory journal of executed trades,
// keyed by instrument id. Trades are append-only and chronological.
// A composite trade is filed under the composite and under every leg.
type TradeStore struct {
	mu     sync.RWMutex
	trades map[string][]*domain.Trade // instrument_id → trades (chronological)
}

// NewTradeStore creates an empty TradeStore.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		trades: make(map[string][]*domain.Trade),
	}
}

// Append records the trade under each of the given instrument ids.
func (s *TradeStore) Append(t *domain.Trade, instrumentIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range instrumentIDs {
		s.trades[id] = append(s.trades[id], t)
	}
}

// GetByInstrument returns all trades touching an instrument in
// chronological order. Returns an empty slice if there are none.
func (s *TradeStore) GetByInstrument(instrumentID string) []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trades := s.trades[instrumentID]
	if trades == nil {
		return []*domain.Trade{}
	}

	// Return a copy to avoid callers mutating the internal slice.
	result := make([]*domain.Trade, len(trades))
	copy(result, trades)
	return result
}
