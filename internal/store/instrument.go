package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/matchbook/internal/domain"
)

// InstrumentRegistry is a thread-safe in-memory registry of instruments,
// keyed by instrument id, with a reverse index from each simple instrument
// to the composites that reference it.
type InstrumentRegistry struct {
	mu          sync.RWMutex
	instruments map[string]*domain.Instrument
	dependents  map[string]map[string]bool // simple id → composite ids
}

// NewInstrumentRegistry creates an empty InstrumentRegistry.
func NewInstrumentRegistry() *InstrumentRegistry {
	return &InstrumentRegistry{
		instruments: make(map[string]*domain.Instrument),
		dependents:  make(map[string]map[string]bool),
	}
}

// Put validates the instrument and inserts or replaces it. Validation and
// storage happen in one critical section, so a concurrent Put or
// UpdatePrice for the same id observes either the old or the new value.
func (r *InstrumentRegistry) Put(i domain.Instrument) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.validate(i); err != nil {
		return err
	}
	r.put(i)
	return nil
}

// Create validates and inserts the instrument only if the id is free. It
// returns domain.ErrInstrumentExists otherwise.
func (r *InstrumentRegistry) Create(i domain.Instrument) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.validate(i); err != nil {
		return err
	}
	if _, ok := r.instruments[i.ID]; ok {
		return domain.ErrInstrumentExists
	}
	r.put(i)
	return nil
}

// validate checks i on its own and against the registered instruments:
// every child id of a composite must resolve to a registered simple
// instrument, and an instrument that is already some composite's child
// can not become a composite. The caller must hold r.mu.
func (r *InstrumentRegistry) validate(i domain.Instrument) error {
	if err := domain.ValidateInstrument(i); err != nil {
		return err
	}
	if !i.IsComposite() {
		return nil
	}
	if len(r.dependents[i.ID]) > 0 {
		return &domain.StructuralError{InstrumentID: i.ID, Message: "child instruments can not be composites themselves"}
	}
	for _, childID := range i.ChildIDs() {
		child, ok := r.instruments[childID]
		if !ok {
			return &domain.StructuralError{InstrumentID: i.ID, Message: fmt.Sprintf("child instrument %s is not registered", childID)}
		}
		if child.IsComposite() {
			return &domain.StructuralError{InstrumentID: i.ID, Message: "child instruments can not be composites themselves"}
		}
	}
	return nil
}

// put stores i and rebuilds its dependents edges. The caller must hold
// r.mu for writing.
func (r *InstrumentRegistry) put(i domain.Instrument) {
	if old, ok := r.instruments[i.ID]; ok {
		for _, childID := range old.ChildIDs() {
			delete(r.dependents[childID], old.ID)
		}
	}

	stored := i
	stored.Children = append([]domain.Instrument(nil), i.Children...)
	r.instruments[i.ID] = &stored

	for _, childID := range stored.ChildIDs() {
		set := r.dependents[childID]
		if set == nil {
			set = make(map[string]bool)
			r.dependents[childID] = set
		}
		set[stored.ID] = true
	}
}

// Get returns a snapshot of the instrument. It returns
// domain.ErrInstrumentNotFound if the id is unknown.
func (r *InstrumentRegistry) Get(id string) (domain.Instrument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.instruments[id]
	if !ok {
		return domain.Instrument{}, domain.ErrInstrumentNotFound
	}
	return *i, nil
}

// Exists returns true if an instrument with the given id is registered.
func (r *InstrumentRegistry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.instruments[id]
	return ok
}

// UpdatePrice replaces the price of an existing instrument. Unknown ids
// and negative prices are ignored.
func (r *InstrumentRegistry) UpdatePrice(id string, price decimal.Decimal) {
	if price.IsNegative() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.instruments[id]
	if !ok {
		return
	}
	updated := *i
	updated.Price = price
	r.instruments[id] = &updated
}

// Dependents returns the ids of composites that list id as a child,
// sorted ascending.
func (r *InstrumentRegistry) Dependents(id string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.dependents[id]
	ids := make([]string, 0, len(set))
	for compositeID := range set {
		ids = append(ids, compositeID)
	}
	sort.Strings(ids)
	return ids
}

// List returns snapshots of every instrument sorted by id.
func (r *InstrumentRegistry) List() []domain.Instrument {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Instrument, 0, len(r.instruments))
	for _, i := range r.instruments {
		result = append(result, *i)
	}
	sort.Slice(result, func(a, b int) bool {
		return result[a].ID < result[b].ID
	})
	return result
}
