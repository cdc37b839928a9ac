package match

import (
	"sync"

	"github.com/igrmk/treemap/v2"
	"github.com/shopspring/decimal"
	"github.com/tickcore/matching-engine/protocol"
)

// aggLevel is one aggregated price level of the rebuilt view.
type aggLevel struct {
	units int64
	count int64
}

// aggOrder remembers where a placed order's units live so trades can be
// applied to the right levels later.
type aggOrder struct {
	side      Side
	price     decimal.Decimal
	remaining int64
}

// AggregatedBook maintains a simplified view of the order book, tracking
// only price levels and their aggregated sizes. It is rebuilt purely from
// the broadcast event stream and is designed for downstream services
// consuming events via the bus, so it carries its own lock.
type AggregatedBook struct {
	mu     sync.RWMutex
	bid    *treemap.TreeMap[decimal.Decimal, aggLevel]
	ask    *treemap.TreeMap[decimal.Decimal, aggLevel]
	orders map[string]*aggOrder
}

// NewAggregatedBook creates a new AggregatedBook with empty sides.
func NewAggregatedBook() *AggregatedBook {
	return &AggregatedBook{
		bid: treemap.NewWithKeyCompare[decimal.Decimal, aggLevel](func(a, b decimal.Decimal) bool {
			return a.LessThan(b)
		}),
		ask: treemap.NewWithKeyCompare[decimal.Decimal, aggLevel](func(a, b decimal.Decimal) bool {
			return a.LessThan(b)
		}),
		orders: make(map[string]*aggOrder),
	}
}

// Replay applies one broadcast event to the view. OrderPlaced adds the
// order's units at its price; TradeSettled removes the traded units from
// both participating orders' levels; PriceChanged carries no depth
// information and is a no-op. Returns ErrNotFound when a trade references
// an order the stream never placed (a gap in the event feed).
func (ab *AggregatedBook) Replay(ev protocol.Event) error {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	switch ev := ev.(type) {
	case protocol.OrderPlaced:
		return ab.applyPlaced(&ev.Order)
	case protocol.TradeSettled:
		if err := ab.applyFill(ev.BidOrderID, ev.Units); err != nil {
			return err
		}
		return ab.applyFill(ev.AskOrderID, ev.Units)
	default:
		return nil
	}
}

func (ab *AggregatedBook) applyPlaced(order *Order) error {
	if _, exists := ab.orders[order.OrderID]; exists {
		return ErrInvalidParam
	}

	ab.orders[order.OrderID] = &aggOrder{
		side:      order.Side,
		price:     order.Price,
		remaining: order.Units,
	}

	tree := ab.treeFor(order.Side)
	level, _ := tree.Get(order.Price)
	level.units += order.Units
	level.count++
	tree.Set(order.Price, level)

	return nil
}

func (ab *AggregatedBook) applyFill(orderID string, units int64) error {
	ref, ok := ab.orders[orderID]
	if !ok {
		return ErrNotFound
	}

	ref.remaining -= units

	tree := ab.treeFor(ref.side)
	level, _ := tree.Get(ref.price)
	level.units -= units
	if ref.remaining <= 0 {
		level.count--
		delete(ab.orders, orderID)
	}

	if level.units <= 0 && level.count <= 0 {
		tree.Del(ref.price)
	} else {
		tree.Set(ref.price, level)
	}

	return nil
}

func (ab *AggregatedBook) treeFor(side Side) *treemap.TreeMap[decimal.Decimal, aggLevel] {
	if side == Bid {
		return ab.bid
	}
	return ab.ask
}

// Depth returns the aggregated size at a specific price level for the given
// side. Returns zero if the price level does not exist.
func (ab *AggregatedBook) Depth(side Side, price decimal.Decimal) int64 {
	ab.mu.RLock()
	defer ab.mu.RUnlock()

	level, _ := ab.treeFor(side).Get(price)
	return level.units
}

// Best returns the best price on a side: the maximum bid or the minimum
// ask. ok is false when the side is empty.
func (ab *AggregatedBook) Best(side Side) (decimal.Decimal, bool) {
	ab.mu.RLock()
	defer ab.mu.RUnlock()

	tree := ab.treeFor(side)
	if tree.Len() == 0 {
		return decimal.Decimal{}, false
	}

	if side == Bid {
		it := tree.Reverse()
		return it.Key(), true
	}

	it := tree.Iterator()
	return it.Key(), true
}

// Levels returns up to limit aggregated price levels, best price first.
func (ab *AggregatedBook) Levels(side Side, limit int) []*protocol.DepthItem {
	ab.mu.RLock()
	defer ab.mu.RUnlock()

	result := make([]*protocol.DepthItem, 0, limit)
	tree := ab.treeFor(side)

	if side == Bid {
		for it := tree.Reverse(); it.Valid() && len(result) < limit; it.Next() {
			level := it.Value()
			result = append(result, &protocol.DepthItem{Price: it.Key(), Units: level.units, Count: level.count})
		}
		return result
	}

	for it := tree.Iterator(); it.Valid() && len(result) < limit; it.Next() {
		level := it.Value()
		result = append(result, &protocol.DepthItem{Price: it.Key(), Units: level.units, Count: level.count})
	}
	return result
}
