package domain

import "sync"

// SymbolRegistry maps instrument ids to display symbols in a thread-safe
// manner. It is filled from the startup mapping and consulted whenever an
// instrument is registered without an explicit symbol.
type SymbolRegistry struct {
	mu      sync.RWMutex
	symbols map[string]string
}

// NewSymbolRegistry creates an empty SymbolRegistry.
func NewSymbolRegistry() *SymbolRegistry {
	return &SymbolRegistry{
		symbols: make(map[string]string),
	}
}

// Register records the symbol for an instrument id. Safe for concurrent use.
func (r *SymbolRegistry) Register(id, symbol string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.symbols[id] = symbol
}

// Lookup returns the symbol for id and whether one was registered.
func (r *SymbolRegistry) Lookup(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.symbols[id]
	return s, ok
}

// Resolve returns symbol when non-empty, otherwise the registered symbol
// for id (possibly empty).
func (r *SymbolRegistry) Resolve(id, symbol string) string {
	if symbol != "" {
		return symbol
	}
	s, _ := r.Lookup(id)
	return s
}
