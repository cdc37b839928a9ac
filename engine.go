package match

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/tickcore/matching-engine/protocol"
)

const defaultCommandBuffer = 32768

// command is the internal carrier flowing through the engine's single
// channel. resp, when non-nil, receives one reply after the command's
// state mutations are complete; queries still queued when drain runs get
// none.
type command struct {
	seqID   uint64
	typ     protocol.CommandType
	payload any
	resp    chan any
}

// Engine is a single-symbol continuous matching engine. One goroutine
// (Start) owns all state; every mutation and read goes through cmdChan, so
// commands are observed strictly sequentially and no locking is needed on
// the book.
type Engine struct {
	symbol           string
	book             *Book
	running          bool // owned by the command loop
	lastCmdSeqID     atomic.Uint64
	isShutdown       atomic.Bool
	cmdChan          chan command
	done             chan struct{}
	shutdownComplete chan struct{}
	publisher        EventPublisher
	serializer       protocol.Serializer
}

// Option configures an Engine.
type Option func(*Engine)

// WithCommandBuffer overrides the command channel capacity.
func WithCommandBuffer(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.cmdChan = make(chan command, n)
		}
	}
}

// WithSerializer overrides the payload serializer used by EnqueueCommand.
func WithSerializer(s protocol.Serializer) Option {
	return func(e *Engine) {
		if s != nil {
			e.serializer = s
		}
	}
}

// NewEngine creates an engine bound to one symbol. The engine starts in the
// running state; call Start to begin consuming commands.
func NewEngine(symbol string, publisher EventPublisher, opts ...Option) *Engine {
	e := &Engine{
		symbol:           symbol,
		book:             NewBook(symbol),
		running:          true,
		cmdChan:          make(chan command, defaultCommandBuffer),
		done:             make(chan struct{}),
		shutdownComplete: make(chan struct{}),
		publisher:        publisher,
		serializer:       &protocol.DefaultJSONSerializer{},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Symbol returns the instrument this engine is bound to.
func (e *Engine) Symbol() string {
	return e.symbol
}

// LastCmdSeqID returns the sequence ID of the last processed command
// envelope. Used by hosts to know where to resume consuming from MQ.
func (e *Engine) LastCmdSeqID() uint64 {
	return e.lastCmdSeqID.Load()
}

// Start runs the command loop until Shutdown. It processes one command to
// completion, including all event emissions, before starting the next.
// Returns nil when Shutdown() is called and all pending commands are drained.
func (e *Engine) Start() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		select {
		case <-e.done:
			return e.drain()
		case cmd := <-e.cmdChan:
			e.dispatch(cmd)
			if cmd.seqID > 0 {
				e.lastCmdSeqID.Store(cmd.seqID)
			}
		}
	}
}

// dispatch classifies one command, applies it, and sends the reply if the
// command carries a response channel.
func (e *Engine) dispatch(cmd command) {
	switch cmd.typ {
	case protocol.CmdPlaceBid:
		order, ok := cmd.payload.(*Order)
		if !ok {
			return
		}
		success, reason := e.admit(order)
		reply(cmd, &protocol.BidResult{Success: success, Reason: reason})

	case protocol.CmdPlaceAsk:
		order, ok := cmd.payload.(*Order)
		if !ok {
			return
		}
		success, reason := e.admit(order)
		reply(cmd, &protocol.AskResult{Success: success, Reason: reason})

	case protocol.CmdGetPrice:
		reply(cmd, e.getPrice())

	case protocol.CmdGetTrades:
		reply(cmd, e.getTrades())

	case protocol.CmdHalt:
		e.running = false
		logger.Info("engine halted", "symbol", e.symbol)

	case protocol.CmdStart:
		e.running = true
		logger.Info("engine started", "symbol", e.symbol)

	case protocol.CmdDrainCheck:
		reply(cmd, &protocol.DrainCheckResult{
			Running:         e.running,
			PendingCommands: len(e.cmdChan),
			BidOrders:       e.book.bidQueue.orderCount(),
			AskOrders:       e.book.askQueue.orderCount(),
		})

	case protocol.CmdDepth:
		limit, ok := cmd.payload.(uint32)
		if !ok {
			return
		}
		reply(cmd, &protocol.Depth{
			Bids: e.book.bidQueue.depth(limit),
			Asks: e.book.askQueue.depth(limit),
		})

	case protocol.CmdSnapshot:
		reply(cmd, e.createSnapshot())

	default:
		// Unrecognised commands are ignored; type discipline belongs to the
		// command transport.
		logger.Debug("unrecognised command", "symbol", e.symbol, "type", uint8(cmd.typ))
	}
}

// admit applies the halted gate, then the validator and matcher, and maps
// the outcome to the reply reason vocabulary.
func (e *Engine) admit(order *Order) (bool, string) {
	if !e.running {
		return false, protocol.ReasonEngineHalted
	}

	if reason := e.processOrder(order); reason != protocol.RejectReasonNone {
		return false, protocol.ReasonInvalidOrder
	}

	return true, protocol.ReasonValidOrder
}

func (e *Engine) getPrice() *protocol.GetPriceResult {
	bid, ask := e.bests()

	result := &protocol.GetPriceResult{
		Bid: bid,
		Ask: ask,
	}

	if bid != nil && ask != nil {
		result.Success = true
		result.Reason = protocol.ReasonPriceAvailable
	} else {
		result.Reason = protocol.ReasonPriceUnavailable
	}

	return result
}

func (e *Engine) getTrades() *protocol.GetTradesResult {
	trades := e.book.trades

	if len(trades) == 0 {
		return &protocol.GetTradesResult{
			Orders: []protocol.Order{},
			Reason: protocol.ReasonNoTrades,
		}
	}

	orders := make([]protocol.Order, 0, len(trades)*2)
	for _, t := range trades {
		orders = append(orders, *t.BidOrder, *t.AskOrder)
	}

	return &protocol.GetTradesResult{
		Orders:  orders,
		Success: true,
		Reason:  protocol.OrdersFilledReason(len(orders)),
	}
}

// reply delivers a command's response. Non-blocking: the response channel
// is buffered by the caller, and an absent listener just loses the reply.
func reply(cmd command, res any) {
	if cmd.resp == nil {
		return
	}

	select {
	case cmd.resp <- res:
	default:
	}
}

// roundTrip enqueues a command and waits for its reply.
func (e *Engine) roundTrip(ctx context.Context, typ protocol.CommandType, payload any) (any, error) {
	if e.isShutdown.Load() {
		return nil, ErrShutdown
	}

	respChan := make(chan any, 1)

	select {
	case e.cmdChan <- command{typ: typ, payload: payload, resp: respChan}:
	case <-ctx.Done():
		return nil, ErrTimeout
	}

	select {
	case res := <-respChan:
		return res, nil
	case <-ctx.Done():
		return nil, ErrTimeout
	case <-time.After(5 * time.Second):
		return nil, ErrTimeout
	}
}

// PlaceBid submits a buy order and waits for its result. The reply is sent
// after the order's full matching pass, so a subsequent query from the same
// caller observes the effects.
func (e *Engine) PlaceBid(ctx context.Context, order *Order) (*protocol.BidResult, error) {
	if order == nil || len(order.OrderID) == 0 {
		return nil, ErrInvalidParam
	}

	o := *order
	o.Side = protocol.SideBid

	res, err := e.roundTrip(ctx, protocol.CmdPlaceBid, &o)
	if err != nil {
		return nil, err
	}

	result, ok := res.(*protocol.BidResult)
	if !ok {
		return nil, ErrInternal
	}
	return result, nil
}

// PlaceAsk submits a sell order and waits for its result.
func (e *Engine) PlaceAsk(ctx context.Context, order *Order) (*protocol.AskResult, error) {
	if order == nil || len(order.OrderID) == 0 {
		return nil, ErrInvalidParam
	}

	o := *order
	o.Side = protocol.SideAsk

	res, err := e.roundTrip(ctx, protocol.CmdPlaceAsk, &o)
	if err != nil {
		return nil, err
	}

	result, ok := res.(*protocol.AskResult)
	if !ok {
		return nil, ErrInternal
	}
	return result, nil
}

// GetPrice returns the current best bid/ask. Success requires both sides of
// the book to be non-empty.
func (e *Engine) GetPrice(ctx context.Context) (*protocol.GetPriceResult, error) {
	res, err := e.roundTrip(ctx, protocol.CmdGetPrice, nil)
	if err != nil {
		return nil, err
	}

	result, ok := res.(*protocol.GetPriceResult)
	if !ok {
		return nil, ErrInternal
	}
	return result, nil
}

// GetTrades returns the flattened orders of every trade settled so far, in
// append order.
func (e *Engine) GetTrades(ctx context.Context) (*protocol.GetTradesResult, error) {
	res, err := e.roundTrip(ctx, protocol.CmdGetTrades, nil)
	if err != nil {
		return nil, err
	}

	result, ok := res.(*protocol.GetTradesResult)
	if !ok {
		return nil, ErrInternal
	}
	return result, nil
}

// Halt stops order admission on receipt. Orders arriving while halted are
// rejected with "Engine Halted"; queries keep serving. No reply.
func (e *Engine) Halt(ctx context.Context) error {
	return e.enqueue(ctx, command{typ: protocol.CmdHalt})
}

// Resume restores normal processing (the wire-level Start command). No
// state is carried over from the halted period. No reply.
func (e *Engine) Resume(ctx context.Context) error {
	return e.enqueue(ctx, command{typ: protocol.CmdStart})
}

// DrainCheck reports lifecycle state and queue occupancy.
func (e *Engine) DrainCheck(ctx context.Context) (*protocol.DrainCheckResult, error) {
	res, err := e.roundTrip(ctx, protocol.CmdDrainCheck, nil)
	if err != nil {
		return nil, err
	}

	result, ok := res.(*protocol.DrainCheckResult)
	if !ok {
		return nil, ErrInternal
	}
	return result, nil
}

// Depth returns the current depth of the order book up to the specified limit.
func (e *Engine) Depth(ctx context.Context, limit uint32) (*protocol.Depth, error) {
	if limit == 0 {
		return nil, ErrInvalidParam
	}

	res, err := e.roundTrip(ctx, protocol.CmdDepth, limit)
	if err != nil {
		return nil, err
	}

	result, ok := res.(*protocol.Depth)
	if !ok {
		return nil, ErrInternal
	}
	return result, nil
}

// enqueue submits a command without waiting for a reply.
func (e *Engine) enqueue(ctx context.Context, cmd command) error {
	if e.isShutdown.Load() {
		return ErrShutdown
	}

	select {
	case e.cmdChan <- cmd:
		return nil
	case <-ctx.Done():
		return ErrTimeout
	}
}

// EnqueueCommand accepts a serialized command envelope, deserializing the
// payload lazily by type. Replies of query commands entering through this
// path are discarded; hosts needing replies use the typed methods.
func (e *Engine) EnqueueCommand(cmd *protocol.Command) error {
	if e.isShutdown.Load() {
		return ErrShutdown
	}

	internal := command{seqID: cmd.SeqID, typ: cmd.Type}

	switch cmd.Type {
	case protocol.CmdPlaceBid:
		payload := &protocol.PlaceBidCommand{}
		if err := e.serializer.Unmarshal(cmd.Payload, payload); err != nil {
			logger.Error("failed to unmarshal PlaceBid command", "symbol", e.symbol, "error", err)
			return nil
		}
		order := payload.Order
		order.Side = protocol.SideBid
		internal.payload = &order

	case protocol.CmdPlaceAsk:
		payload := &protocol.PlaceAskCommand{}
		if err := e.serializer.Unmarshal(cmd.Payload, payload); err != nil {
			logger.Error("failed to unmarshal PlaceAsk command", "symbol", e.symbol, "error", err)
			return nil
		}
		order := payload.Order
		order.Side = protocol.SideAsk
		internal.payload = &order

	case protocol.CmdDepth:
		payload := &protocol.GetDepthRequest{}
		if err := e.serializer.Unmarshal(cmd.Payload, payload); err != nil {
			logger.Error("failed to unmarshal Depth command", "symbol", e.symbol, "error", err)
			return nil
		}
		internal.payload = payload.Limit

	case protocol.CmdHalt, protocol.CmdStart, protocol.CmdGetPrice,
		protocol.CmdGetTrades, protocol.CmdDrainCheck, protocol.CmdSnapshot:
		// No payload to deserialize.

	default:
		// Unrecognised types still flow through the loop so sequencing and
		// lastCmdSeqID stay consistent.
	}

	select {
	case e.cmdChan <- internal:
		return nil
	case <-e.done:
		return ErrShutdown
	}
}

// Shutdown signals the engine to stop and waits for pending commands to be
// processed. Returns nil on a clean drain, or ctx.Err() on timeout.
func (e *Engine) Shutdown(ctx context.Context) error {
	if e.isShutdown.CompareAndSwap(false, true) {
		close(e.done)
	}

	select {
	case <-e.shutdownComplete:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain processes all remaining commands in the channel before returning.
// State-mutating commands are applied and replied to; read-only queries are
// consumed without effect.
func (e *Engine) drain() error {
	defer close(e.shutdownComplete)

	for {
		select {
		case cmd := <-e.cmdChan:
			switch cmd.typ {
			case protocol.CmdPlaceBid, protocol.CmdPlaceAsk, protocol.CmdHalt, protocol.CmdStart:
				e.dispatch(cmd)
			default:
				// Queries touch nothing and are dropped without a reply; a
				// caller still waiting on one gets ErrTimeout from roundTrip.
			}
		default:
			return nil
		}
	}
}
