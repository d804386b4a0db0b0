package service

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/efreitasn/matchbook/internal/config"
	"github.com/efreitasn/matchbook/internal/domain"
	"github.com/efreitasn/matchbook/internal/store"
)

var instrumentIDRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// RegisterInstrumentRequest represents the input for instrument
// registration. Kind defaults to simple; a composite lists the ids of
// already registered simple instruments as Children.
type RegisterInstrumentRequest struct {
	ID       string
	Symbol   string
	Kind     domain.InstrumentKind
	Children []string
}

// InstrumentService handles instrument bootstrap, registration and lookup.
type InstrumentService struct {
	registry *store.InstrumentRegistry
	symbols  *domain.SymbolRegistry
	logger   *slog.Logger
}

// NewInstrumentService creates a new InstrumentService.
func NewInstrumentService(registry *store.InstrumentRegistry, symbols *domain.SymbolRegistry, logger *slog.Logger) *InstrumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &InstrumentService{
		registry: registry,
		symbols:  symbols,
		logger:   logger,
	}
}

// Bootstrap registers the startup instruments: the symbol mapping first,
// then every simple instrument, then every composite. Definitions are
// applied through Put, so re-running Bootstrap replaces instruments with
// fresh zero-priced copies.
func (s *InstrumentService) Bootstrap(defs *config.InstrumentDefinitions) error {
	for id, symbol := range defs.Mapping {
		s.symbols.Register(id, symbol)
	}

	simple := make(map[string]domain.Instrument, len(defs.Simple))
	for _, d := range defs.Simple {
		inst := domain.NewSimpleInstrument(d.ID, defs.Symbol(d.ID))
		if err := s.registry.Put(inst); err != nil {
			return fmt.Errorf("register simple instrument %s: %w", d.ID, err)
		}
		simple[d.ID] = inst
	}

	for _, d := range defs.Composite {
		children := make([]domain.Instrument, 0, len(d.Children))
		for _, childID := range d.Children {
			children = append(children, simple[childID])
		}
		inst := domain.NewCompositeInstrument(d.ID, defs.Symbol(d.ID), children)
		if err := s.registry.Put(inst); err != nil {
			return fmt.Errorf("register composite instrument %s: %w", d.ID, err)
		}
	}

	s.logger.Info("instruments loaded",
		slog.Int("simple", len(defs.Simple)),
		slog.Int("composite", len(defs.Composite)),
	)
	return nil
}

// Register validates the request and adds a new instrument. The symbol
// falls back to the startup mapping when omitted. Children are resolved
// against the registry; an id that is already taken returns
// domain.ErrInstrumentExists.
func (s *InstrumentService) Register(req RegisterInstrumentRequest) (domain.Instrument, error) {
	if !instrumentIDRegex.MatchString(req.ID) {
		return domain.Instrument{}, &domain.ValidationError{
			Message: "id must match ^[A-Za-z0-9_.-]{1,64}$",
		}
	}

	kind := req.Kind
	if kind == "" {
		kind = domain.InstrumentKindSimple
	}
	symbol := s.symbols.Resolve(req.ID, req.Symbol)

	var inst domain.Instrument
	switch kind {
	case domain.InstrumentKindSimple:
		if len(req.Children) > 0 {
			return domain.Instrument{}, &domain.StructuralError{
				InstrumentID: req.ID,
				Message:      "simple instrument can not have children",
			}
		}
		inst = domain.NewSimpleInstrument(req.ID, symbol)
	case domain.InstrumentKindComposite:
		children := make([]domain.Instrument, 0, len(req.Children))
		for _, childID := range req.Children {
			child, err := s.registry.Get(childID)
			if err != nil {
				return domain.Instrument{}, &domain.ValidationError{
					Message: fmt.Sprintf("financialInstrumentId=%s unknown child instrument %s", req.ID, childID),
				}
			}
			children = append(children, child)
		}
		inst = domain.NewCompositeInstrument(req.ID, symbol, children)
	default:
		return domain.Instrument{}, &domain.ValidationError{
			Message: fmt.Sprintf("kind must be 'simple' or 'composite', got %q", kind),
		}
	}

	if err := s.registry.Create(inst); err != nil {
		return domain.Instrument{}, err
	}
	s.logger.Info("instrument registered",
		slog.String("instrument_id", inst.ID),
		slog.String("kind", string(inst.Kind)),
	)
	return s.registry.Get(inst.ID)
}

// Get returns a snapshot of an instrument with its current price.
func (s *InstrumentService) Get(id string) (domain.Instrument, error) {
	return s.registry.Get(id)
}

// List returns every registered instrument sorted by id.
func (s *InstrumentService) List() []domain.Instrument {
	return s.registry.List()
}
