package match

import (
	"context"

	"github.com/tickcore/matching-engine/protocol"
)

// SnapshotOrder is one resting order captured with its unfilled remainder.
type SnapshotOrder struct {
	Order     Order `json:"order"`
	Remaining int64 `json:"remaining"`
}

// EngineSnapshot contains the full state of one engine. Bids and Asks are
// listed in arrival order so a restore preserves matching priority.
type EngineSnapshot struct {
	SchemaVersion int             `json:"schema_version"`
	Symbol        string          `json:"symbol"`
	Running       bool            `json:"running"`
	LastCmdSeqID  uint64          `json:"last_cmd_seq_id"`
	Bids          []SnapshotOrder `json:"bids"`
	Asks          []SnapshotOrder `json:"asks"`
	Trades        []*Trade        `json:"trades"`
	SeenIDs       []string        `json:"seen_ids"`
}

// createSnapshot captures the engine state. It runs inside the command loop
// (via CmdSnapshot), so the capture is consistent by construction.
func (e *Engine) createSnapshot() *EngineSnapshot {
	snap := &EngineSnapshot{
		SchemaVersion: SnapshotSchemaVersion,
		Symbol:        e.symbol,
		Running:       e.running,
		LastCmdSeqID:  e.lastCmdSeqID.Load(),
		Bids:          e.book.bidQueue.toSnapshot(),
		Asks:          e.book.askQueue.toSnapshot(),
		Trades:        make([]*Trade, len(e.book.trades)),
		SeenIDs:       make([]string, 0, len(e.book.seenIDs)),
	}

	copy(snap.Trades, e.book.trades)

	for id := range e.book.seenIDs {
		snap.SeenIDs = append(snap.SeenIDs, id)
	}

	return snap
}

// TakeSnapshot captures the current state of the engine. It is thread-safe
// and interacts with the command loop via a channel.
func (e *Engine) TakeSnapshot(ctx context.Context) (*EngineSnapshot, error) {
	res, err := e.roundTrip(ctx, protocol.CmdSnapshot, nil)
	if err != nil {
		return nil, err
	}

	snap, ok := res.(*EngineSnapshot)
	if !ok {
		return nil, ErrInternal
	}
	return snap, nil
}

// Restore rebuilds the engine state from a snapshot. It must be called
// before Start, while no command loop owns the state.
func (e *Engine) Restore(snap *EngineSnapshot) error {
	if snap == nil || snap.Symbol != e.symbol {
		return ErrInvalidParam
	}

	book := NewBook(e.symbol)

	restoreOrders := func(orders []SnapshotOrder) {
		for i := range orders {
			o := orders[i].Order
			book.insert(&residualOrder{
				order:     &o,
				remaining: orders[i].Remaining,
			})
		}
	}

	restoreOrders(snap.Bids)
	restoreOrders(snap.Asks)

	book.trades = append(book.trades, snap.Trades...)

	// IDs of fully filled orders survive the book; a restore must keep
	// rejecting their reuse.
	for _, id := range snap.SeenIDs {
		book.seenIDs[id] = struct{}{}
	}

	e.book = book
	e.running = snap.Running
	e.lastCmdSeqID.Store(snap.LastCmdSeqID)

	return nil
}
