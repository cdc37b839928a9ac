package match

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/tickcore/matching-engine/protocol"
)

// subscriber is one registered consumer of the broadcast stream. Events it
// cannot buffer are counted and lost; the bus never waits for it.
type subscriber struct {
	ch      chan protocol.Event
	dropped atomic.Int64
}

// Bus is a broadcast EventPublisher fanning events out to subscriber
// channels. Publish delivers with a non-blocking send per subscriber: a
// full channel loses the event. The engine's command loop therefore never
// waits on a sink, whatever backpressure a consumer builds up.
type Bus struct {
	closed atomic.Bool

	mu   sync.RWMutex
	subs []*subscriber
}

// NewBus creates a Bus with no subscribers.
func NewBus() *Bus {
	return &Bus{}
}

// Publish fans each event out to every subscriber. Never blocks; a
// subscriber whose buffer is full misses the event, and nothing is
// delivered after Shutdown.
func (b *Bus) Publish(events ...protocol.Event) {
	if b.closed.Load() {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ev := range events {
		for _, sub := range b.subs {
			select {
			case sub.ch <- ev:
			default:
				sub.dropped.Add(1)
			}
		}
	}
}

// Subscribe registers a new subscriber and returns its receive channel.
// buffer is the channel capacity; undersized buffers lose events under
// bursts. Subscribing after Shutdown returns a closed channel.
func (b *Bus) Subscribe(buffer int) <-chan protocol.Event {
	ch := make(chan protocol.Event, buffer)

	if b.closed.Load() {
		close(ch)
		return ch
	}

	b.mu.Lock()
	b.subs = append(b.subs, &subscriber{ch: ch})
	b.mu.Unlock()

	return ch
}

// Dropped returns the number of events lost across all subscribers.
func (b *Bus) Dropped() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var total int64
	for _, sub := range b.subs {
		total += sub.dropped.Load()
	}
	return total
}

// Shutdown stops delivery and closes all subscriber channels. Buffered
// events remain readable until each channel is drained.
func (b *Bus) Shutdown(ctx context.Context) error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	// Taking the write lock waits out any Publish in flight, so no send can
	// race the closes below.
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		close(sub.ch)
	}
	b.subs = nil

	return nil
}
