package protocol

import "github.com/shopspring/decimal"

// EventKind identifies the broadcast event variant.
type EventKind string

const (
	EventKindOrderPlaced  EventKind = "order_placed"
	EventKindPriceChanged EventKind = "price_changed"
	EventKindTradeSettled EventKind = "trade_settled"
)

// Event is the tagged union carried on the broadcast stream.
type Event interface {
	Kind() EventKind
}

// OrderPlaced announces that an order was admitted to the book. It fires
// before any TradeSettled caused by the same admission.
type OrderPlaced struct {
	Order Order `json:"order"`
}

func (OrderPlaced) Kind() EventKind { return EventKindOrderPlaced }

// PriceChanged announces a change of the derived best bid/ask. Bid/Ask are
// nil when the corresponding side of the book is empty.
type PriceChanged struct {
	Symbol string           `json:"symbol"`
	Bid    *decimal.Decimal `json:"bid,omitempty"`
	Ask    *decimal.Decimal `json:"ask,omitempty"`
}

func (PriceChanged) Kind() EventKind { return EventKindPriceChanged }

// TradeSettled announces one execution. Price is the maker's price.
type TradeSettled struct {
	Symbol     string          `json:"symbol"`
	BidOrderID string          `json:"bid_order_id"`
	AskOrderID string          `json:"ask_order_id"`
	Price      decimal.Decimal `json:"price"`
	Units      int64           `json:"units"`
}

func (TradeSettled) Kind() EventKind { return EventKindTradeSettled }
