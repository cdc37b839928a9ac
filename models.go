package match

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tickcore/matching-engine/protocol"
)

type Side = protocol.Side

const (
	Bid Side = protocol.SideBid
	Ask Side = protocol.SideAsk
)

// Order is the immutable client intent. The engine never mutates it after
// admission; the mutable remainder lives on residualOrder.
type Order = protocol.Order

// residualOrder is a resting order in the book. It owns the immutable Order
// plus the remaining unfilled units, and is threaded on its side's
// arrival-ordered list.
type residualOrder struct {
	order     *Order
	remaining int64

	// Intrusive arrival-list pointers, owned by sideQueue.
	next *residualOrder
	prev *residualOrder
}

// Trade is an immutable record of one execution. Price is always the
// maker's (resting order's) price.
type Trade struct {
	ID        string          `json:"id"`
	BidOrder  *Order          `json:"bid_order"`
	AskOrder  *Order          `json:"ask_order"`
	Price     decimal.Decimal `json:"price"`
	Units     int64           `json:"units"`
	CreatedAt time.Time       `json:"created_at"`
}
