package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// InstrumentKind tags the Instrument variant.
type InstrumentKind string

const (
	InstrumentKindSimple    InstrumentKind = "simple"
	InstrumentKindComposite InstrumentKind = "composite"
)

// Instrument is either a simple tradable instrument or a composite whose
// trades are synthesised from simultaneous trades in its children.
// Children is only populated for composites and is never modified after
// registration.
type Instrument struct {
	ID       string
	Symbol   string
	Price    decimal.Decimal
	Kind     InstrumentKind
	Children []Instrument
}

// NewSimpleInstrument returns a simple instrument priced at zero.
func NewSimpleInstrument(id, symbol string) Instrument {
	return Instrument{ID: id, Symbol: symbol, Kind: InstrumentKindSimple}
}

// NewCompositeInstrument returns a composite instrument priced at zero.
func NewCompositeInstrument(id, symbol string, children []Instrument) Instrument {
	return Instrument{ID: id, Symbol: symbol, Kind: InstrumentKindComposite, Children: children}
}

// IsComposite reports whether the instrument is a composite.
func (i Instrument) IsComposite() bool {
	return i.Kind == InstrumentKindComposite
}

// ChildIDs returns the ids of the children in declaration order.
func (i Instrument) ChildIDs() []string {
	ids := make([]string, len(i.Children))
	for n, c := range i.Children {
		ids[n] = c.ID
	}
	return ids
}

// ValidateInstrument checks the instrument and, for composites, every child.
// Field problems return *ValidationError; composite structure problems
// return *StructuralError naming the composite.
func ValidateInstrument(i Instrument) error {
	if i.ID == "" {
		return &ValidationError{Message: "Financial instrument id is missing"}
	}
	if i.Symbol == "" {
		return &ValidationError{Message: fmt.Sprintf("financialInstrumentId=%s symbol is missing", i.ID)}
	}
	if i.Price.IsNegative() {
		return &ValidationError{Message: fmt.Sprintf("financialInstrumentId=%s price must not be negative", i.ID)}
	}

	switch i.Kind {
	case InstrumentKindSimple:
		if len(i.Children) > 0 {
			return &StructuralError{InstrumentID: i.ID, Message: "simple instrument can not have children"}
		}
		return nil
	case InstrumentKindComposite:
	default:
		return &ValidationError{Message: fmt.Sprintf("financialInstrumentId=%s unknown kind %q", i.ID, i.Kind)}
	}

	if len(i.Children) == 0 {
		return &StructuralError{InstrumentID: i.ID, Message: "childInstruments must not be empty"}
	}
	seen := make(map[string]bool, len(i.Children))
	for _, child := range i.Children {
		if child.ID == i.ID {
			return &StructuralError{InstrumentID: i.ID, Message: "composite can not contain itself"}
		}
		if child.IsComposite() {
			return &StructuralError{InstrumentID: i.ID, Message: "child instruments can not be composites themselves"}
		}
		if seen[child.ID] {
			return &StructuralError{InstrumentID: i.ID, Message: fmt.Sprintf("duplicate child instrument %s", child.ID)}
		}
		seen[child.ID] = true
		if err := ValidateInstrument(child); err != nil {
			return err
		}
	}
	return nil
}
