package orderbook

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"levelbook/domain"
	"levelbook/logging"
)

// OrderBook tracks resting orders and the aggregated size and order count per
// price level and per side.
//
// Every mutation either applies completely or, when it returns an error,
// leaves the book untouched. Unknown ids on cancel, modify and fill are a
// silent no-op: feeds routinely deliver those for orders already gone.
//
// Lock-free: only accessed by a single writer, no synchronization
type OrderBook struct {
	symbol   string
	log      *logging.Logger
	bids     PriceIndex // descending price
	asks     PriceIndex // ascending price
	orders   map[domain.OrderID]*domain.Order
	bidStats SideStats
	askStats SideStats
}

// Option configures an OrderBook
type Option func(*options)

type options struct {
	log       *logging.Logger
	indexType PriceIndexType
}

// WithLogger sets the logger; rejections are logged at debug level
func WithLogger(log *logging.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithPriceIndex selects the price index implementation for both sides
func WithPriceIndex(t PriceIndexType) Option {
	return func(o *options) {
		o.indexType = t
	}
}

// NewOrderBook creates a new empty order book for a symbol
func NewOrderBook(symbol string, opts ...Option) *OrderBook {
	o := options{
		log:       logging.NewNop(),
		indexType: RedBlackTreeType,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &OrderBook{
		symbol: symbol,
		log:    o.log.Named("orderbook").With(zap.String("symbol", symbol)),
		bids:   NewPriceIndex(o.indexType, domain.SideBid),
		asks:   NewPriceIndex(o.indexType, domain.SideAsk),
		orders: make(map[domain.OrderID]*domain.Order),
	}
}

func (ob *OrderBook) Symbol() string {
	return ob.symbol
}

// AddOrder puts a new order at rest.
// Returns ErrInvalidArgument for an unknown side, a negative price or a
// non-positive size, and ErrDuplicateOrderID if id is already resting.
func (ob *OrderBook) AddOrder(id domain.OrderID, side domain.Side, price domain.Price, size domain.Size) error {
	if !side.Valid() || price < 0 || size <= 0 {
		return ob.reject(errors.Wrapf(ErrInvalidArgument,
			"add %s: side=%s price=%d size=%d", id, side, price, size))
	}
	if _, exists := ob.orders[id]; exists {
		return ob.reject(errors.Wrapf(ErrDuplicateOrderID, "add %s", id))
	}

	index, stats := ob.sideOf(side)
	index.GetOrCreate(price).add(id, size)
	stats.TotalSize += size
	stats.TotalCount++

	ob.orders[id] = &domain.Order{
		ID:        id,
		Side:      side,
		Price:     price,
		Remaining: size,
	}
	return nil
}

// CancelOrder removes an order from the book. Unknown ids are ignored.
func (ob *OrderBook) CancelOrder(id domain.OrderID) error {
	order, exists := ob.orders[id]
	if !exists {
		return nil
	}

	index, stats := ob.sideOf(order.Side)
	level, err := ob.levelOf(index, order)
	if err != nil {
		return err
	}
	ob.removeOrder(index, stats, level, order)
	return nil
}

// ModifyOrder sets the remaining size of an order. Unknown ids are ignored.
// A new size of zero keeps the order resting with nothing left; it takes a
// cancel or a fill to remove it.
func (ob *OrderBook) ModifyOrder(id domain.OrderID, newSize domain.Size) error {
	if newSize < 0 {
		return ob.reject(errors.Wrapf(ErrInvalidArgument, "modify %s: size=%d", id, newSize))
	}
	order, exists := ob.orders[id]
	if !exists {
		return nil
	}

	index, stats := ob.sideOf(order.Side)
	level, err := ob.levelOf(index, order)
	if err != nil {
		return err
	}

	delta := newSize - order.Remaining
	if delta == 0 {
		return nil
	}
	level.TotalSize += delta
	stats.TotalSize += delta
	order.Remaining = newSize
	return nil
}

// FillOrder executes fillSize against a resting order. Unknown ids are ignored.
// A fill at or above the remaining size removes the order, taking only what
// was actually resting off the aggregates.
func (ob *OrderBook) FillOrder(id domain.OrderID, fillSize domain.Size) error {
	if fillSize <= 0 {
		return ob.reject(errors.Wrapf(ErrInvalidArgument, "fill %s: size=%d", id, fillSize))
	}
	order, exists := ob.orders[id]
	if !exists {
		return nil
	}

	index, stats := ob.sideOf(order.Side)
	level, err := ob.levelOf(index, order)
	if err != nil {
		return err
	}

	if remaining := order.Remaining - fillSize; remaining > 0 {
		level.TotalSize -= fillSize
		stats.TotalSize -= fillSize
		order.Remaining = remaining
		return nil
	}
	ob.removeOrder(index, stats, level, order)
	return nil
}

// Apply dispatches a feed event to the matching mutation
func (ob *OrderBook) Apply(ev *domain.Event) error {
	switch ev.Kind {
	case domain.EventAdd:
		return ob.AddOrder(ev.OrderID, ev.Side, ev.Price, ev.Size)
	case domain.EventCancel:
		return ob.CancelOrder(ev.OrderID)
	case domain.EventModify:
		return ob.ModifyOrder(ev.OrderID, ev.Size)
	case domain.EventFill:
		return ob.FillOrder(ev.OrderID, ev.Size)
	default:
		return ob.reject(errors.Wrapf(ErrInvalidArgument, "event kind %s", ev.Kind))
	}
}

func (ob *OrderBook) sideOf(side domain.Side) (PriceIndex, *SideStats) {
	if side == domain.SideBid {
		return ob.bids, &ob.bidStats
	}
	return ob.asks, &ob.askStats
}

// levelOf returns the level an order rests on. A missing level, or one that
// does not list the order, means the views have diverged: fail closed rather
// than create a phantom level.
func (ob *OrderBook) levelOf(index PriceIndex, order *domain.Order) (*PriceLevel, error) {
	level, found := index.Get(order.Price)
	if !found || !level.contains(order.ID) {
		err := errors.Wrapf(ErrInconsistentState,
			"order %s has no level at %s %d", order.ID, order.Side, order.Price)
		ob.log.Error("stale order reference", zap.Error(err))
		return nil, err
	}
	return level, nil
}

func (ob *OrderBook) removeOrder(index PriceIndex, stats *SideStats, level *PriceLevel, order *domain.Order) {
	level.remove(order.ID, order.Remaining)
	stats.TotalSize -= order.Remaining
	stats.TotalCount--
	delete(ob.orders, order.ID)

	if level.OrderCount == 0 {
		index.Delete(level.Price)
	}
}

func (ob *OrderBook) reject(err error) error {
	if ob.log.IsDebug() {
		ob.log.Debug("rejected book update", zap.Error(err))
	}
	return err
}

//
// Read-only accessors
//

// BestBid returns the highest bid level
func (ob *OrderBook) BestBid() (Level, bool) {
	return ob.Best(domain.SideBid)
}

// BestAsk returns the lowest ask level
func (ob *OrderBook) BestAsk() (Level, bool) {
	return ob.Best(domain.SideAsk)
}

// Best returns the top level of a side, false when the side is empty
func (ob *OrderBook) Best(side domain.Side) (Level, bool) {
	index, _ := ob.sideOf(side)
	best := index.Best()
	if best == nil {
		return Level{}, false
	}
	return best.snapshot(), true
}

// BidStats returns the aggregate of the bid side
func (ob *OrderBook) BidStats() SideStats {
	return ob.bidStats
}

// AskStats returns the aggregate of the ask side
func (ob *OrderBook) AskStats() SideStats {
	return ob.askStats
}

func (ob *OrderBook) Stats(side domain.Side) SideStats {
	_, stats := ob.sideOf(side)
	return *stats
}

// Order returns a copy of a resting order
func (ob *OrderBook) Order(id domain.OrderID) (domain.Order, bool) {
	order, exists := ob.orders[id]
	if !exists {
		return domain.Order{}, false
	}
	return *order, true
}

// Level returns the level at price on side
func (ob *OrderBook) Level(side domain.Side, price domain.Price) (Level, bool) {
	index, _ := ob.sideOf(side)
	level, found := index.Get(price)
	if !found {
		return Level{}, false
	}
	return level.snapshot(), true
}

// Depth returns up to maxLevels levels of a side, best first
func (ob *OrderBook) Depth(side domain.Side, maxLevels int) []Level {
	if maxLevels <= 0 {
		return nil
	}
	index, _ := ob.sideOf(side)
	depth := make([]Level, 0, min(maxLevels, index.Len()))
	index.Walk(func(level *PriceLevel) bool {
		depth = append(depth, level.snapshot())
		return len(depth) < maxLevels
	})
	return depth
}

// Levels returns the number of price levels on a side
func (ob *OrderBook) Levels(side domain.Side) int {
	index, _ := ob.sideOf(side)
	return index.Len()
}

// Len returns the number of resting orders
func (ob *OrderBook) Len() int {
	return len(ob.orders)
}
