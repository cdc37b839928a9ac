package protocol

import "github.com/shopspring/decimal"

// CommandType defines the type of the command (using uint8 for memory alignment and performance)
type CommandType uint8

// Command Type Numbering Strategy:
// - 0-50:  Engine Management Commands (internal, low-frequency admin operations)
// - 51+:   Trading and Query Commands (external, hot path)
const (
	// Engine Management Commands (0-50, internal use)
	CmdUnknown      CommandType = 0
	CmdCreateMarket CommandType = 1
	CmdHalt         CommandType = 2
	CmdStart        CommandType = 3

	// Trading and Query Commands (51+, external use)
	CmdPlaceBid   CommandType = 51
	CmdPlaceAsk   CommandType = 52
	CmdGetPrice   CommandType = 53
	CmdGetTrades  CommandType = 54
	CmdDrainCheck CommandType = 55
	CmdDepth      CommandType = 56
	CmdSnapshot   CommandType = 57
)

// Command is the standard carrier for commands entering the engine.
// It is designed to be efficient for serialization and compatible with Event Sourcing.
type Command struct {
	// Version is the protocol version for backward compatibility.
	Version uint8 `json:"version"`

	// Symbol is the target instrument for this command (Routing Header).
	Symbol string `json:"symbol"`

	// SeqID is used for global ordering and deduplication.
	SeqID uint64 `json:"seq_id"`

	// Type identifies the payload type for fast routing.
	Type CommandType `json:"type"`

	// Payload contains the serialized business data (e.g., JSON bytes of PlaceBidCommand).
	// We use lazy deserialization to optimize routing performance.
	Payload []byte `json:"payload"`

	// Metadata stores non-business context (e.g., Tracing ID, Source IP).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Order is the immutable intent submitted by a client.
type Order struct {
	OrderID string          `json:"order_id"`
	Symbol  string          `json:"symbol"`
	Side    Side            `json:"side"`
	Price   decimal.Decimal `json:"price"`
	Units   int64           `json:"units"`
}

// PlaceBidCommand is the payload for submitting a buy order.
type PlaceBidCommand struct {
	Order Order `json:"order"`
}

// PlaceAskCommand is the payload for submitting a sell order.
type PlaceAskCommand struct {
	Order Order `json:"order"`
}

// GetPriceRequest is the payload for querying the best bid/ask.
type GetPriceRequest struct{}

// GetTradesRequest is the payload for querying the executed trade log.
type GetTradesRequest struct{}

// DrainCheckRequest is the payload for querying lifecycle and queue state.
type DrainCheckRequest struct{}

// GetDepthRequest is the payload for querying order book depth.
type GetDepthRequest struct {
	Limit uint32 `json:"limit"`
}

// CreateMarketCommand is the payload for creating a new engine instance.
type CreateMarketCommand struct {
	Symbol string `json:"symbol"`
}
