package match

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickcore/matching-engine/protocol"
)

func TestAggregatedBookReplay(t *testing.T) {
	ab := NewAggregatedBook()

	require.NoError(t, ab.Replay(protocol.OrderPlaced{Order: *bid("b1", 10, "100")}))
	require.NoError(t, ab.Replay(protocol.OrderPlaced{Order: *bid("b2", 5, "100")}))
	require.NoError(t, ab.Replay(protocol.OrderPlaced{Order: *ask("a1", 7, "105")}))

	assert.Equal(t, int64(15), ab.Depth(Bid, decimal.RequireFromString("100")))
	assert.Equal(t, int64(7), ab.Depth(Ask, decimal.RequireFromString("105")))

	best, ok := ab.Best(Bid)
	require.True(t, ok)
	assert.True(t, best.Equal(decimal.RequireFromString("100")))

	best, ok = ab.Best(Ask)
	require.True(t, ok)
	assert.True(t, best.Equal(decimal.RequireFromString("105")))

	// A fill removes units from both participants' levels.
	require.NoError(t, ab.Replay(protocol.OrderPlaced{Order: *ask("a2", 10, "100")}))
	require.NoError(t, ab.Replay(protocol.TradeSettled{
		Symbol:     testSymbol,
		BidOrderID: "b1",
		AskOrderID: "a2",
		Price:      decimal.RequireFromString("100"),
		Units:      10,
	}))

	assert.Equal(t, int64(5), ab.Depth(Bid, decimal.RequireFromString("100")))
	assert.Equal(t, int64(0), ab.Depth(Ask, decimal.RequireFromString("100")))
}

func TestAggregatedBookGapDetection(t *testing.T) {
	ab := NewAggregatedBook()

	err := ab.Replay(protocol.TradeSettled{
		Symbol:     testSymbol,
		BidOrderID: "never-placed",
		AskOrderID: "also-never-placed",
		Units:      1,
	})
	assert.Equal(t, ErrNotFound, err)
}

func TestAggregatedBookLevels(t *testing.T) {
	ab := NewAggregatedBook()

	require.NoError(t, ab.Replay(protocol.OrderPlaced{Order: *bid("b1", 10, "99")}))
	require.NoError(t, ab.Replay(protocol.OrderPlaced{Order: *bid("b2", 10, "101")}))
	require.NoError(t, ab.Replay(protocol.OrderPlaced{Order: *bid("b3", 10, "100")}))

	levels := ab.Levels(Bid, 2)
	require.Len(t, levels, 2)
	assert.True(t, levels[0].Price.Equal(decimal.RequireFromString("101")))
	assert.True(t, levels[1].Price.Equal(decimal.RequireFromString("100")))
}

// TestAggregatedBookTracksEngine rebuilds the view from a real engine's
// event stream and cross-checks it against the engine's own depth.
func TestAggregatedBookTracksEngine(t *testing.T) {
	engine, publisher := newTestEngine(t)
	ctx := context.Background()

	orders := []*Order{
		bid("r1", 40, "101"),
		ask("r2", 30, "100"),
		ask("r3", 25, "103"),
		bid("r4", 10, "103"),
		ask("r5", 50, "104"),
	}

	for _, order := range orders {
		if order.Side == Bid {
			_, err := engine.PlaceBid(ctx, order)
			require.NoError(t, err)
		} else {
			_, err := engine.PlaceAsk(ctx, order)
			require.NoError(t, err)
		}
	}

	ab := NewAggregatedBook()
	for _, ev := range publisher.Events() {
		require.NoError(t, ab.Replay(ev))
	}

	depth, err := engine.Depth(ctx, 100)
	require.NoError(t, err)

	for _, level := range depth.Bids {
		assert.Equal(t, level.Units, ab.Depth(Bid, level.Price), "bid level %s", level.Price)
	}
	for _, level := range depth.Asks {
		assert.Equal(t, level.Units, ab.Depth(Ask, level.Price), "ask level %s", level.Price)
	}

	if len(depth.Bids) > 0 {
		best, ok := ab.Best(Bid)
		require.True(t, ok)
		assert.True(t, best.Equal(depth.Bids[0].Price))
	}
	if len(depth.Asks) > 0 {
		best, ok := ab.Best(Ask)
		require.True(t, ok)
		assert.True(t, best.Equal(depth.Asks[0].Price))
	}
}
