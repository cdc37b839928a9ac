package match

import (
	"time"

	"github.com/rs/xid"
	"github.com/shopspring/decimal"
	"github.com/tickcore/matching-engine/protocol"
)

// processOrder runs the full admission and matching pass for one incoming
// order. It is called only from the engine's command loop.
//
// The event order for a single incoming order is fixed:
// OrderPlaced -> PriceChanged? -> for each fill: TradeSettled then
// PriceChanged?.
func (e *Engine) processOrder(order *Order) protocol.RejectReason {
	if reason := validateOrder(e.book, order); reason != protocol.RejectReasonNone {
		logger.Debug("order rejected",
			"symbol", e.symbol,
			"order_id", order.OrderID,
			"reason", string(reason),
		)
		return reason
	}

	taker := &residualOrder{order: order, remaining: order.Units}

	// Admit. The order becomes visible as placed before any trade it causes.
	prevBid, prevAsk := e.bests()
	e.book.insert(taker)
	e.publish(protocol.OrderPlaced{Order: *order})
	e.publishPriceChange(prevBid, prevAsk)

	// Snapshot the crossing counter-orders once, before any fills, in their
	// insertion order. Iteration stays stable across the mutations below.
	candidates := e.book.candidatesFor(order)

	takerQueue := e.book.queueFor(order.Side)
	counterQueue := e.book.queueFor(order.Side.Opposite())

	for _, maker := range candidates {
		if taker.remaining == 0 {
			break
		}

		units := taker.remaining
		if maker.remaining < units {
			units = maker.remaining
		}

		trade := &Trade{
			ID:        xid.New().String(),
			Price:     maker.order.Price, // maker's price, never the taker's
			Units:     units,
			CreatedAt: time.Now().UTC(),
		}
		if order.Side == Bid {
			trade.BidOrder = order
			trade.AskOrder = maker.order
		} else {
			trade.BidOrder = maker.order
			trade.AskOrder = order
		}

		prevBid, prevAsk = e.bests()

		// Settle before touching either residual.
		e.publish(protocol.TradeSettled{
			Symbol:     e.symbol,
			BidOrderID: trade.BidOrder.OrderID,
			AskOrderID: trade.AskOrder.OrderID,
			Price:      trade.Price,
			Units:      trade.Units,
		})
		e.book.appendTrade(trade)

		counterQueue.reduceOrder(maker, units)
		if maker.remaining == 0 {
			counterQueue.removeOrder(maker)
		}

		takerQueue.reduceOrder(taker, units)
		if taker.remaining == 0 {
			takerQueue.removeOrder(taker)
		}

		e.publishPriceChange(prevBid, prevAsk)
	}

	e.book.assertUncrossed()

	return protocol.RejectReasonNone
}

// bests returns the current derived best prices, nil meaning the side is
// empty.
func (e *Engine) bests() (bid *decimal.Decimal, ask *decimal.Decimal) {
	if p, ok := e.book.bestBid(); ok {
		bid = &p
	}
	if p, ok := e.book.bestAsk(); ok {
		ask = &p
	}
	return bid, ask
}

// publishPriceChange compares the current bests against the values observed
// before the triggering mutation and emits one PriceChanged when either side
// moved, including transitions to or from an empty side.
func (e *Engine) publishPriceChange(prevBid *decimal.Decimal, prevAsk *decimal.Decimal) {
	bid, ask := e.bests()

	if priceEqual(prevBid, bid) && priceEqual(prevAsk, ask) {
		return
	}

	e.publish(protocol.PriceChanged{
		Symbol: e.symbol,
		Bid:    bid,
		Ask:    ask,
	})
}

// priceEqual compares two optional prices with exact decimal semantics.
func priceEqual(a *decimal.Decimal, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// publish hands events to the sink. Delivery is fire-and-forget: publisher
// implementations must not block the engine's progress.
func (e *Engine) publish(events ...protocol.Event) {
	e.publisher.Publish(events...)
}
