package match

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/tickcore/matching-engine/protocol"
)

// Exchange hosts one engine per symbol and routes command envelopes to the
// right one. Routing only: engines never match across symbols.
type Exchange struct {
	isShutdown atomic.Bool
	engines    sync.Map
	publisher  EventPublisher
	serializer protocol.Serializer
}

// NewExchange creates a new exchange. All engines share the publisher; the
// publisher must be safe under concurrent publishers.
func NewExchange(publisher EventPublisher) *Exchange {
	return &Exchange{
		publisher:  publisher,
		serializer: &protocol.DefaultJSONSerializer{},
	}
}

// EnqueueCommand routes the command to the correct engine based on the
// envelope's symbol.
func (x *Exchange) EnqueueCommand(cmd *protocol.Command) error {
	if x.isShutdown.Load() {
		return ErrShutdown
	}

	if cmd.Type == protocol.CmdCreateMarket {
		return x.handleCreateMarket(cmd)
	}

	if len(cmd.Symbol) == 0 {
		return ErrNotFound
	}

	engine := x.Engine(cmd.Symbol)
	if engine == nil {
		return ErrNotFound
	}

	return engine.EnqueueCommand(cmd)
}

// CreateMarket creates and starts a new engine for the symbol.
func (x *Exchange) CreateMarket(symbol string) error {
	cmd := &protocol.CreateMarketCommand{Symbol: symbol}
	bytes, err := x.serializer.Marshal(cmd)
	if err != nil {
		return err
	}
	return x.EnqueueCommand(&protocol.Command{
		Type:    protocol.CmdCreateMarket,
		Symbol:  symbol,
		Payload: bytes,
	})
}

// PlaceBid wraps a buy order into an envelope and routes it.
func (x *Exchange) PlaceBid(ctx context.Context, symbol string, order *Order) error {
	return x.placeOrder(symbol, order, protocol.CmdPlaceBid)
}

// PlaceAsk wraps a sell order into an envelope and routes it.
func (x *Exchange) PlaceAsk(ctx context.Context, symbol string, order *Order) error {
	return x.placeOrder(symbol, order, protocol.CmdPlaceAsk)
}

func (x *Exchange) placeOrder(symbol string, order *Order, typ protocol.CommandType) error {
	if order == nil || len(order.OrderID) == 0 {
		return ErrInvalidParam
	}

	var payload any
	if typ == protocol.CmdPlaceBid {
		payload = &protocol.PlaceBidCommand{Order: *order}
	} else {
		payload = &protocol.PlaceAskCommand{Order: *order}
	}

	bytes, err := x.serializer.Marshal(payload)
	if err != nil {
		return err
	}

	return x.EnqueueCommand(&protocol.Command{
		Symbol:  symbol,
		Type:    typ,
		Payload: bytes,
	})
}

// Engine retrieves the engine for a specific symbol.
// Returns nil if the market does not exist.
func (x *Exchange) Engine(symbol string) *Engine {
	value, found := x.engines.Load(symbol)
	if !found {
		return nil
	}

	engine, _ := value.(*Engine)
	return engine
}

// Shutdown gracefully shuts down all engines in parallel. It blocks until
// every engine has drained or the context is cancelled.
func (x *Exchange) Shutdown(ctx context.Context) error {
	x.isShutdown.Store(true)

	var wg sync.WaitGroup
	var errs []error
	var errMu sync.Mutex

	x.engines.Range(func(key, value any) bool {
		wg.Add(1)
		go func(engine *Engine) {
			defer wg.Done()
			if err := engine.Shutdown(ctx); err != nil {
				errMu.Lock()
				errs = append(errs, err)
				errMu.Unlock()
			}
		}(value.(*Engine))
		return true
	})

	wg.Wait()

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// handleCreateMarket handles the creation of a new engine.
func (x *Exchange) handleCreateMarket(cmd *protocol.Command) error {
	payload := &protocol.CreateMarketCommand{}
	if err := x.serializer.Unmarshal(cmd.Payload, payload); err != nil {
		logger.Error("failed to unmarshal CreateMarket command", "error", err)
		return nil // Cannot process invalid payload
	}

	if len(payload.Symbol) == 0 {
		return ErrInvalidParam
	}

	if _, exists := x.engines.Load(payload.Symbol); exists {
		logger.Warn("market already exists", "symbol", payload.Symbol)
		return nil
	}

	engine := NewEngine(payload.Symbol, x.publisher)
	x.engines.Store(payload.Symbol, engine)

	go func() {
		_ = engine.Start()
	}()

	return nil
}
