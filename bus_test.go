package match

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickcore/matching-engine/protocol"
)

func TestBusFanOut(t *testing.T) {
	bus := NewBus()

	sub1 := bus.Subscribe(16)
	sub2 := bus.Subscribe(16)

	bus.Publish(
		protocol.OrderPlaced{Order: *bid("o1", 5, "10")},
		protocol.PriceChanged{Symbol: testSymbol},
	)

	for _, sub := range []<-chan protocol.Event{sub1, sub2} {
		select {
		case ev := <-sub:
			assert.Equal(t, protocol.EventKindOrderPlaced, ev.Kind())
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for first event")
		}

		select {
		case ev := <-sub:
			assert.Equal(t, protocol.EventKindPriceChanged, ev.Kind())
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for second event")
		}
	}
}

func TestBusDropsForSlowSubscriber(t *testing.T) {
	bus := NewBus()

	slow := bus.Subscribe(1)
	fast := bus.Subscribe(16)

	bus.Publish(
		protocol.PriceChanged{Symbol: testSymbol},
		protocol.PriceChanged{Symbol: testSymbol},
		protocol.PriceChanged{Symbol: testSymbol},
	)

	// The slow subscriber kept only what its buffer held.
	assert.Len(t, slow, 1)
	assert.Len(t, fast, 3)
	assert.Equal(t, int64(2), bus.Dropped())
}

func TestBusShutdownClosesSubscribers(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(16)

	bus.Publish(protocol.PriceChanged{Symbol: testSymbol})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Shutdown(ctx))

	// Buffered event is still readable, then the channel closes.
	ev, ok := <-sub
	require.True(t, ok)
	assert.Equal(t, protocol.EventKindPriceChanged, ev.Kind())

	_, ok = <-sub
	assert.False(t, ok)

	// Publishing after shutdown is a no-op, and late subscribers get a
	// closed channel.
	bus.Publish(protocol.PriceChanged{Symbol: testSymbol})
	_, ok = <-bus.Subscribe(4)
	assert.False(t, ok)
}

func TestEngineWithBusSink(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(64)

	engine := NewEngine(testSymbol, bus)
	go func() {
		_ = engine.Start()
	}()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = engine.Shutdown(ctx)
	})

	ctx := context.Background()
	_, err := engine.PlaceBid(ctx, bid("b1", 50, "100"))
	require.NoError(t, err)
	_, err = engine.PlaceAsk(ctx, ask("a1", 50, "100"))
	require.NoError(t, err)

	var kinds []protocol.EventKind
	deadline := time.After(2 * time.Second)
	for len(kinds) < 6 {
		select {
		case ev := <-sub:
			kinds = append(kinds, ev.Kind())
		case <-deadline:
			t.Fatalf("timed out, got %v", kinds)
		}
	}

	assert.Equal(t, []protocol.EventKind{
		protocol.EventKindOrderPlaced,
		protocol.EventKindPriceChanged,
		protocol.EventKindOrderPlaced,
		protocol.EventKindPriceChanged,
		protocol.EventKindTradeSettled,
		protocol.EventKindPriceChanged,
	}, kinds)
}
