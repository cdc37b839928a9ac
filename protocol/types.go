package protocol

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Side represents the order side (Bid/Ask).
type Side int8

const (
	SideBid Side = 1
	SideAsk Side = 2
)

func (s Side) String() string {
	switch s {
	case SideBid:
		return "bid"
	case SideAsk:
		return "ask"
	}
	return "unknown"
}

// Opposite returns the counter side.
func (s Side) Opposite() Side {
	if s == SideBid {
		return SideAsk
	}
	return SideBid
}

// Reply reason vocabulary. These strings are part of the wire contract and
// must not change.
const (
	ReasonValidOrder       = "Valid Order"
	ReasonInvalidOrder     = "Invalid Order"
	ReasonEngineHalted     = "Engine Halted"
	ReasonPriceAvailable   = "Price Available"
	ReasonPriceUnavailable = "Price Unavailable"
	ReasonNoTrades         = "No order has been executed"
)

// OrdersFilledReason formats the GetTrades success reason for n filled
// order references.
func OrdersFilledReason(n int) string {
	return strconv.Itoa(n) + " Orders Filled"
}

// RejectReason classifies why an order was not admitted. It is used for
// diagnostics only; replies carry the coarse reason vocabulary above.
type RejectReason string

const (
	RejectReasonNone         RejectReason = ""
	RejectReasonInvalidPrice RejectReason = "invalid_price"
	RejectReasonInvalidUnits RejectReason = "invalid_units"
	RejectReasonDuplicateID  RejectReason = "duplicate_order_id"
	RejectReasonHalted       RejectReason = "engine_halted"
)

// BidResult is the reply to PlaceBid.
type BidResult struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason"`
}

// AskResult is the reply to PlaceAsk.
type AskResult struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason"`
}

// GetPriceResult is the reply to GetPrice. Bid/Ask are nil when the
// corresponding side of the book is empty.
type GetPriceResult struct {
	Bid     *decimal.Decimal `json:"bid,omitempty"`
	Ask     *decimal.Decimal `json:"ask,omitempty"`
	Success bool             `json:"success"`
	Reason  string           `json:"reason"`
}

// GetTradesResult is the reply to GetTrades. Orders is the flattened list
// [t.bid_order, t.ask_order for t in trades] in append order.
type GetTradesResult struct {
	Orders  []Order `json:"orders"`
	Success bool    `json:"success"`
	Reason  string  `json:"reason"`
}

// DrainCheckResult is the reply to DrainCheck.
type DrainCheckResult struct {
	Running         bool  `json:"running"`
	PendingCommands int   `json:"pending_commands"`
	BidOrders       int64 `json:"bid_orders"`
	AskOrders       int64 `json:"ask_orders"`
}

// DepthItem is one aggregated price level.
type DepthItem struct {
	Price decimal.Decimal `json:"price"`
	Units int64           `json:"units"`
	Count int64           `json:"count"`
}

// Depth is the reply to the depth query. Levels are ordered best-first.
type Depth struct {
	Bids []*DepthItem `json:"bids"`
	Asks []*DepthItem `json:"asks"`
}
