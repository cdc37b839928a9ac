package match

import (
	"github.com/shopspring/decimal"
)

// Book is the engine-local state: both sides of resting orders, the
// append-only trade log, and the registry of every order ID ever admitted.
// It is mutated only from the owning engine's command loop.
type Book struct {
	symbol   string
	bidQueue *sideQueue
	askQueue *sideQueue
	trades   []*Trade
	seenIDs  map[string]struct{}
}

// NewBook creates an empty book bound to one symbol.
func NewBook(symbol string) *Book {
	return &Book{
		symbol:   symbol,
		bidQueue: newBidQueue(),
		askQueue: newAskQueue(),
		trades:   make([]*Trade, 0),
		seenIDs:  make(map[string]struct{}),
	}
}

// queueFor returns the queue holding orders of the given side.
func (b *Book) queueFor(side Side) *sideQueue {
	if side == Bid {
		return b.bidQueue
	}
	return b.askQueue
}

// insert adds a residual order to its side and records its ID as seen.
func (b *Book) insert(r *residualOrder) {
	b.queueFor(r.order.Side).insertOrder(r)
	b.seenIDs[r.order.OrderID] = struct{}{}
}

// remove deletes a residual order from its side.
func (b *Book) remove(r *residualOrder) {
	b.queueFor(r.order.Side).removeOrder(r)
}

// seen reports whether an order ID was ever admitted, including orders
// long since filled and removed.
func (b *Book) seen(id string) bool {
	_, ok := b.seenIDs[id]
	return ok
}

// bestBid is the maximum resting bid price; ok is false when bids is empty.
func (b *Book) bestBid() (decimal.Decimal, bool) {
	return b.bidQueue.bestPrice()
}

// bestAsk is the minimum resting ask price; ok is false when asks is empty.
func (b *Book) bestAsk() (decimal.Decimal, bool) {
	return b.askQueue.bestPrice()
}

// candidatesFor snapshots the resting counter-orders that could fill the
// incoming order: asks priced at or below an incoming bid, bids priced at
// or above an incoming ask. The snapshot is taken once, before any fills,
// and lists counter-orders in their insertion order.
func (b *Book) candidatesFor(incoming *Order) []*residualOrder {
	counter := b.queueFor(incoming.Side.Opposite())

	var candidates []*residualOrder
	for r := counter.firstArrival(); r != nil; r = r.next {
		if crosses(incoming, r.order) {
			candidates = append(candidates, r)
		}
	}

	return candidates
}

// crosses reports whether the resting order's price satisfies the incoming
// order's limit.
func crosses(incoming *Order, resting *Order) bool {
	if incoming.Side == Bid {
		return resting.Price.LessThanOrEqual(incoming.Price)
	}
	return resting.Price.GreaterThanOrEqual(incoming.Price)
}

// appendTrade appends to the trade log. The log is append-only; entries are
// never mutated nor removed.
func (b *Book) appendTrade(t *Trade) {
	b.trades = append(b.trades, t)
}

// assertUncrossed verifies that no resting bid is priced at or above any
// resting ask. A crossed book is a corrupt book: the engine logs a
// diagnostic and terminates rather than continue on it.
func (b *Book) assertUncrossed() {
	bid, bidOK := b.bestBid()
	ask, askOK := b.bestAsk()

	if bidOK && askOK && bid.GreaterThanOrEqual(ask) {
		logger.Error("order book crossed",
			"symbol", b.symbol,
			"best_bid", bid.String(),
			"best_ask", ask.String(),
		)
		panic("match: order book crossed: bid " + bid.String() + " >= ask " + ask.String())
	}
}
