package match

import (
	"github.com/huandu/skiplist"
	"github.com/shopspring/decimal"
	"github.com/tickcore/matching-engine/protocol"
)

// priceUnit aggregates all resting units at one price level.
type priceUnit struct {
	price      decimal.Decimal
	totalUnits int64
	count      int64
}

// sideQueue holds one side of the book. Two indexes are kept in sync:
// a skiplist of price levels for the derived best price and depth reads,
// and an intrusive doubly-linked list of residual orders in arrival order,
// which is the traversal order the matcher snapshots.
type sideQueue struct {
	side        Side
	totalOrders int64
	depths      int64
	depthList   *skiplist.SkipList
	orders      map[string]*residualOrder

	// Arrival-ordered list across the whole side.
	head *residualOrder
	tail *residualOrder
}

// newBidQueue creates the queue for buy orders.
// Price levels are sorted descending (highest price first).
func newBidQueue() *sideQueue {
	return &sideQueue{
		side: Bid,
		depthList: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			d1, _ := lhs.(decimal.Decimal)
			d2, _ := rhs.(decimal.Decimal)

			if d1.LessThan(d2) {
				return 1
			} else if d1.GreaterThan(d2) {
				return -1
			}

			return 0
		})),
		orders: make(map[string]*residualOrder),
	}
}

// newAskQueue creates the queue for sell orders.
// Price levels are sorted ascending (lowest price first).
func newAskQueue() *sideQueue {
	return &sideQueue{
		side: Ask,
		depthList: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			d1, _ := lhs.(decimal.Decimal)
			d2, _ := rhs.(decimal.Decimal)

			if d1.GreaterThan(d2) {
				return 1
			} else if d1.LessThan(d2) {
				return -1
			}

			return 0
		})),
		orders: make(map[string]*residualOrder),
	}
}

// order finds a resting order by its ID.
func (q *sideQueue) order(id string) *residualOrder {
	return q.orders[id]
}

// insertOrder appends an order to the arrival list and adds its remaining
// units to the matching price level.
func (q *sideQueue) insertOrder(r *residualOrder) {
	r.prev = q.tail
	r.next = nil
	if q.tail != nil {
		q.tail.next = r
	}
	q.tail = r
	if q.head == nil {
		q.head = r
	}

	el := q.depthList.Get(r.order.Price)
	if el != nil {
		unit, _ := el.Value.(*priceUnit)
		unit.totalUnits += r.remaining
		unit.count++
	} else {
		q.depthList.Set(r.order.Price, &priceUnit{
			price:      r.order.Price,
			totalUnits: r.remaining,
			count:      1,
		})
		q.depths++
	}

	q.orders[r.order.OrderID] = r
	q.totalOrders++
}

// reduceOrder subtracts filled units from an order and its price level.
// The order stays resting; callers remove it once remaining hits zero.
func (q *sideQueue) reduceOrder(r *residualOrder, units int64) {
	r.remaining -= units

	el := q.depthList.Get(r.order.Price)
	if el != nil {
		unit, _ := el.Value.(*priceUnit)
		unit.totalUnits -= units
	}
}

// removeOrder unlinks an order from the arrival list and drops its residual
// units from the price level, cleaning up the level when it empties.
func (q *sideQueue) removeOrder(r *residualOrder) {
	if _, ok := q.orders[r.order.OrderID]; !ok {
		return
	}

	if r.prev != nil {
		r.prev.next = r.next
	} else {
		q.head = r.next
	}

	if r.next != nil {
		r.next.prev = r.prev
	} else {
		q.tail = r.prev
	}

	r.next = nil
	r.prev = nil

	el := q.depthList.Get(r.order.Price)
	if el != nil {
		unit, _ := el.Value.(*priceUnit)
		unit.totalUnits -= r.remaining
		unit.count--
		if unit.count == 0 {
			q.depthList.RemoveElement(el)
			q.depths--
		}
	}

	delete(q.orders, r.order.OrderID)
	q.totalOrders--
}

// bestPrice returns the best price on this side: the maximum for bids, the
// minimum for asks. ok is false when the side is empty.
func (q *sideQueue) bestPrice() (decimal.Decimal, bool) {
	el := q.depthList.Front()
	if el == nil {
		return decimal.Decimal{}, false
	}

	unit, _ := el.Value.(*priceUnit)
	return unit.price, true
}

// firstArrival returns the oldest resting order, or nil when empty.
// Successive orders follow the intrusive next pointers.
func (q *sideQueue) firstArrival() *residualOrder {
	return q.head
}

// orderCount returns the total number of resting orders.
func (q *sideQueue) orderCount() int64 {
	return q.totalOrders
}

// depthCount returns the number of occupied price levels.
func (q *sideQueue) depthCount() int64 {
	return q.depths
}

// depth returns up to limit aggregated price levels, best price first.
func (q *sideQueue) depth(limit uint32) []*protocol.DepthItem {
	result := make([]*protocol.DepthItem, 0, limit)

	el := q.depthList.Front()

	var i uint32 = 0
	for i < limit && el != nil {
		unit, _ := el.Value.(*priceUnit)
		d := protocol.DepthItem{
			Price: unit.price,
			Units: unit.totalUnits,
			Count: unit.count,
		}

		result = append(result, &d)

		el = el.Next()
		i++
	}

	return result
}

// toSnapshot serializes the queue in arrival order so a restore preserves
// matching priority.
func (q *sideQueue) toSnapshot() []SnapshotOrder {
	snapshots := make([]SnapshotOrder, 0, q.totalOrders)

	for r := q.head; r != nil; r = r.next {
		snapshots = append(snapshots, SnapshotOrder{
			Order:     *r.order,
			Remaining: r.remaining,
		})
	}

	return snapshots
}
