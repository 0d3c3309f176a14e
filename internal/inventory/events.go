package inventory

import (
	"sync"

	"github.com/vyrodovalexey/pantry-tracker/internal/model"
)

// DefaultSubscriberBuffer is the per-subscriber queue length.
const DefaultSubscriberBuffer = 16

// Broadcaster fans change events out to subscribers. Publishing never
// blocks: a subscriber whose queue is full misses the event.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[chan model.ChangeEvent]struct{}
	buffer int
	closed bool
}

// NewBroadcaster creates a Broadcaster with the given per-subscriber buffer.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Broadcaster{
		subs:   make(map[chan model.ChangeEvent]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber. The returned cancel func
// unregisters it and closes the channel; it is safe to call more than once.
// Subscribing to a closed Broadcaster yields an already-closed channel.
func (b *Broadcaster) Subscribe() (<-chan model.ChangeEvent, func()) {
	ch := make(chan model.ChangeEvent, b.buffer)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch, func() {}
	}

	b.subs[ch] = struct{}{}
	subscribersGauge.Inc()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				subscribersGauge.Dec()
				close(ch)
			}
		})
	}

	return ch, cancel
}

// Publish delivers evt to every subscriber with room in its queue.
func (b *Broadcaster) Publish(evt model.ChangeEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
			droppedEvents.Inc()
		}
	}
}

// Subscribers returns the number of active subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Later Publish calls are no-ops.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for ch := range b.subs {
		delete(b.subs, ch)
		subscribersGauge.Dec()
		close(ch)
	}
}
