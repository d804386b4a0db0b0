package engine

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/matchbook/internal/domain"
	"github.com/efreitasn/matchbook/internal/store"
)

// InstrumentSource is the view of the instrument registry the engine
// needs: lookups, price publication and the composite reverse index.
type InstrumentSource interface {
	Get(id string) (domain.Instrument, error)
	UpdatePrice(id string, price decimal.Decimal)
	Dependents(id string) []string
}

// Matcher is the matching engine. It owns admission, cancellation and the
// matching passes for simple and composite instruments.
//
// Every decision that reads or mutates a book runs under that book's
// mutex. Composite passes hold the composite book and all leg books,
// locked in ascending id order. A book mutex is always taken before the
// order index lock.
type Matcher struct {
	books       *BookManager
	instruments InstrumentSource
	orderStore  *store.OrderStore
	tradeStore  *store.TradeStore
	validator   *OrderValidator
	logger      *slog.Logger

	rematchDependents bool
	seq               atomic.Uint64
}

// NewMatcher creates a new Matcher with the given dependencies. When
// rematchDependents is set, a pass over a simple instrument is followed
// by passes over every composite that lists it as a child.
func NewMatcher(
	books *BookManager,
	instruments InstrumentSource,
	orderStore *store.OrderStore,
	tradeStore *store.TradeStore,
	logger *slog.Logger,
	rematchDependents bool,
) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		books:             books,
		instruments:       instruments,
		orderStore:        orderStore,
		tradeStore:        tradeStore,
		validator:         NewOrderValidator(instruments),
		logger:            logger,
		rematchDependents: rematchDependents,
	}
}

// AddOrder validates and admits an order, then runs a matching pass on
// its instrument. A validation failure returns *domain.ValidationError
// and a reused id returns *domain.DuplicateOrderError; in both cases
// nothing is registered.
func (m *Matcher) AddOrder(order *domain.Order) error {
	if err := m.validator.Validate(order); err != nil {
		return err
	}

	book := m.books.GetOrCreate(order.InstrumentID)

	book.mu.Lock()
	if err := m.orderStore.Create(order); err != nil {
		book.mu.Unlock()
		return err
	}
	// The order is in no queue until Insert, so a re-admitted order
	// goes behind everything already resting.
	order.SetSeq(m.seq.Add(1))
	book.Insert(order)
	m.publishPrice(book)
	book.mu.Unlock()

	m.logger.Debug("order admitted",
		slog.String("order_id", order.ID),
		slog.String("instrument_id", order.InstrumentID),
		slog.String("side", string(order.Side)),
		slog.String("quantity", order.Quantity().String()),
	)

	return m.ProcessOrderBook(order.InstrumentID)
}

// CancelOrder removes an active order from the book and returns it. The
// boolean is false, and nothing changes, when no active order has the id.
func (m *Matcher) CancelOrder(orderID string) (*domain.Order, bool) {
	order, err := m.orderStore.Get(orderID)
	if err != nil {
		return nil, false
	}

	book := m.books.GetOrCreate(order.InstrumentID)
	book.mu.Lock()
	defer book.mu.Unlock()

	// Re-check under the book lock: a matching pass may have filled it.
	if !m.orderStore.Delete(order) {
		return nil, false
	}
	book.Remove(order)
	m.publishPrice(book)

	m.logger.Debug("order cancelled",
		slog.String("order_id", order.ID),
		slog.String("instrument_id", order.InstrumentID),
	)
	return order, true
}

// ContainsOrder reports whether an order with the id is active.
func (m *Matcher) ContainsOrder(orderID string) bool {
	return m.orderStore.Contains(orderID)
}

// GetOrder returns an active order or domain.ErrOrderNotFound.
func (m *Matcher) GetOrder(orderID string) (*domain.Order, error) {
	return m.orderStore.Get(orderID)
}

// GetInstrument returns a snapshot of an instrument including its
// current price.
func (m *Matcher) GetInstrument(instrumentID string) (domain.Instrument, error) {
	return m.instruments.Get(instrumentID)
}

// OrdersByTrader returns a trader's active orders in arrival order.
func (m *Matcher) OrdersByTrader(traderID string) []*domain.Order {
	return m.orderStore.ListByTrader(traderID)
}

// Depth returns up to n aggregated levels per side for an instrument.
func (m *Matcher) Depth(instrumentID string, n int) (bids, asks []PriceLevel) {
	book := m.books.Get(instrumentID)
	if book == nil {
		return []PriceLevel{}, []PriceLevel{}
	}
	book.mu.Lock()
	defer book.mu.Unlock()
	return book.TopLevels(domain.OrderSideBuy, n), book.TopLevels(domain.OrderSideSell, n)
}

// ProcessOrderBook runs one matching pass for an instrument. Simple
// instruments trade until the best buy and sell no longer cross;
// composites run the best buy composite orders then the best sell
// composite orders against their legs.
func (m *Matcher) ProcessOrderBook(instrumentID string) error {
	inst, err := m.instruments.Get(instrumentID)
	if err != nil {
		return err
	}
	if inst.IsComposite() {
		return m.processComposite(inst)
	}

	if err := m.processSimple(instrumentID); err != nil {
		return err
	}
	if !m.rematchDependents {
		return nil
	}
	for _, compositeID := range m.instruments.Dependents(instrumentID) {
		if book := m.books.Get(compositeID); book == nil {
			continue
		}
		composite, err := m.instruments.Get(compositeID)
		if err != nil {
			continue
		}
		if err := m.processComposite(composite); err != nil {
			return err
		}
	}
	return nil
}

// ProcessResting runs a matching pass for every composite instrument
// that has resting orders and returns the errors joined.
func (m *Matcher) ProcessResting() error {
	var errs []error
	for _, id := range m.books.IDs() {
		book := m.books.Get(id)
		book.mu.Lock()
		empty := book.Empty()
		book.mu.Unlock()
		if empty {
			continue
		}
		inst, err := m.instruments.Get(id)
		if err != nil || !inst.IsComposite() {
			continue
		}
		if err := m.processComposite(inst); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Matcher) processSimple(instrumentID string) error {
	book := m.books.Get(instrumentID)
	if book == nil {
		return nil
	}

	book.mu.Lock()
	defer book.mu.Unlock()

	for {
		buy, ok := book.Best(domain.OrderSideBuy)
		if !ok {
			return nil
		}
		sell, ok := book.Best(domain.OrderSideSell)
		if !ok {
			return nil
		}
		if !crosses(buy, sell) {
			return nil
		}

		qty := decimal.Min(buy.Quantity(), sell.Quantity())
		if !qty.IsPositive() {
			return m.invariant("simple match", nil, slog.String("instrument_id", instrumentID))
		}

		if err := m.fill(book, buy, qty); err != nil {
			return err
		}
		if err := m.fill(book, sell, qty); err != nil {
			return err
		}
		m.publishPrice(book)

		m.record(&domain.Trade{
			InstrumentID: instrumentID,
			Quantity:     qty,
			Fills:        []domain.Fill{fillOf(buy, qty), fillOf(sell, qty)},
		}, instrumentID)
	}
}

// crosses reports whether a simple buy and sell can trade.
func crosses(buy, sell *domain.Order) bool {
	if buy.IsMarket() || sell.IsMarket() {
		return true
	}
	return buy.Price.GreaterThanOrEqual(*sell.Price)
}

func (m *Matcher) processComposite(inst domain.Instrument) error {
	ids := append([]string{inst.ID}, inst.ChildIDs()...)
	books, unlock := m.books.lockBooks(ids)
	defer unlock()

	book := books[inst.ID]
	if book.Empty() {
		return nil
	}

	legs := make([]*OrderBook, len(inst.Children))
	for i, child := range inst.Children {
		legs[i] = books[child.ID]
	}

	for _, side := range []domain.OrderSide{domain.OrderSideBuy, domain.OrderSideSell} {
		for {
			order, ok := book.Best(side)
			if !ok {
				break
			}
			filled, err := m.matchComposite(inst, book, order, legs)
			if err != nil {
				return err
			}
			if !filled {
				break
			}
		}
	}
	return nil
}

// matchComposite trades order against the best opposite orders of every
// leg until it fills, a leg runs dry or the prices stop matching. It
// reports whether order filled completely.
func (m *Matcher) matchComposite(inst domain.Instrument, book *OrderBook, order *domain.Order, legs []*OrderBook) (bool, error) {
	opposite := order.Side.Opposite()
	legOrders := make([]*domain.Order, len(legs))

	for {
		for i, leg := range legs {
			best, ok := leg.Best(opposite)
			if !ok {
				return false, nil
			}
			legOrders[i] = best
		}
		if !compositeMatches(order, legOrders) {
			return false, nil
		}

		qty := order.Quantity()
		for _, lo := range legOrders {
			qty = decimal.Min(qty, lo.Quantity())
		}
		if !qty.IsPositive() {
			return false, m.invariant("composite match", nil, slog.String("instrument_id", inst.ID))
		}

		fills := make([]domain.Fill, 0, len(legOrders)+1)
		if err := m.fill(book, order, qty); err != nil {
			return false, err
		}
		fills = append(fills, fillOf(order, qty))
		for i, lo := range legOrders {
			if err := m.fill(legs[i], lo, qty); err != nil {
				return false, err
			}
			fills = append(fills, fillOf(lo, qty))
		}

		m.publishPrice(book)
		for _, leg := range legs {
			m.publishPrice(leg)
		}

		m.record(&domain.Trade{
			InstrumentID: inst.ID,
			Composite:    true,
			Quantity:     qty,
			Fills:        fills,
		}, append([]string{inst.ID}, inst.ChildIDs()...)...)

		if order.Quantity().IsZero() {
			return true, nil
		}
	}
}

// compositeMatches compares a composite order's limit with the sum of the
// leg prices. Market legs count as zero for a buy and always satisfy a
// sell.
func compositeMatches(order *domain.Order, legs []*domain.Order) bool {
	if order.IsMarket() {
		return true
	}
	sum := decimal.Zero
	for _, lo := range legs {
		if lo.IsMarket() {
			if order.Side == domain.OrderSideSell {
				return true
			}
			continue
		}
		sum = sum.Add(*lo.Price)
	}
	if order.Side == domain.OrderSideBuy {
		return order.Price.GreaterThanOrEqual(sum)
	}
	return order.Price.LessThanOrEqual(sum)
}

// fill decrements an order and drops it from the book and the index once
// it reaches zero. The caller must hold book.mu.
func (m *Matcher) fill(book *OrderBook, order *domain.Order, qty decimal.Decimal) error {
	remaining, err := order.DecrementBy(qty)
	if err != nil {
		return m.invariant("decrement", err, slog.String("order_id", order.ID))
	}
	if !remaining.IsZero() {
		return nil
	}
	if !book.Remove(order) {
		return m.invariant("remove from queue", domain.ErrOrderNotFound, slog.String("order_id", order.ID))
	}
	if !m.orderStore.Delete(order) {
		return m.invariant("remove from index", domain.ErrOrderNotFound, slog.String("order_id", order.ID))
	}
	return nil
}

// publishPrice recomputes the book's instrument price from its queue
// heads. The caller must hold book.mu.
func (m *Matcher) publishPrice(book *OrderBook) {
	m.instruments.UpdatePrice(book.instrumentID, bookPrice(book))
}

func (m *Matcher) record(t *domain.Trade, instrumentIDs ...string) {
	t.TradeID = uuid.New().String()
	t.ExecutedAt = time.Now()
	m.tradeStore.Append(t, instrumentIDs...)

	m.logger.Info("trade executed",
		slog.String("trade_id", t.TradeID),
		slog.String("instrument_id", t.InstrumentID),
		slog.Bool("composite", t.Composite),
		slog.String("quantity", t.Quantity.String()),
		slog.Int("fills", len(t.Fills)),
	)
}

func (m *Matcher) invariant(op string, cause error, attrs ...any) error {
	err := &domain.InvariantError{Op: op, Err: cause}
	m.logger.Error("book invariant violated", append(attrs, slog.String("error", err.Error()))...)
	return err
}

func fillOf(o *domain.Order, qty decimal.Decimal) domain.Fill {
	return domain.Fill{
		OrderID:      o.ID,
		InstrumentID: o.InstrumentID,
		Side:         o.Side,
		Price:        o.Price,
		Quantity:     qty,
	}
}
