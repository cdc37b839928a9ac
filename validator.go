package match

import (
	"github.com/shopspring/decimal"
	"github.com/tickcore/matching-engine/protocol"
)

// validateOrder checks an order against the admission rules. It returns
// RejectReasonNone when the order may be admitted. Format checks (non-empty
// ID, matching symbol) are the command source's responsibility.
func validateOrder(book *Book, order *Order) protocol.RejectReason {
	if order.Price.LessThanOrEqual(decimal.Zero) {
		return protocol.RejectReasonInvalidPrice
	}

	if order.Units <= 0 {
		return protocol.RejectReasonInvalidUnits
	}

	// Duplicate IDs are rejected even when the earlier instance was fully
	// filled and left the book.
	if book.seen(order.OrderID) {
		return protocol.RejectReasonDuplicateID
	}

	return protocol.RejectReasonNone
}
