// Package bus is an in-process, multi-subscriber broadcast for domain events.
//
// Publish never blocks: every subscription owns an unbounded FIFO that a pump
// goroutine drains into the subscriber's channel. Ordering is guaranteed per
// subscription only.
package bus

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/StrathCole/oracle-watch/pkg/events"
	"github.com/StrathCole/oracle-watch/pkg/metrics"
)

// Bus fans events out to subscriptions.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool
	logger zerolog.Logger
}

// New creates an empty bus.
func New(logger zerolog.Logger) *Bus {
	return &Bus{
		subs:   make(map[uint64]*Subscription),
		logger: logger.With().Str("component", "bus").Logger(),
	}
}

// Subscribe registers a subscription for the given kinds. No kinds means every kind.
// Subscribing to a closed bus returns a subscription whose channel is already closed.
func (b *Bus) Subscribe(name string, kinds ...events.Kind) *Subscription {
	sub := newSubscription(name, kinds)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.finish()
		close(sub.out)
		return sub
	}
	b.nextID++
	sub.id = b.nextID
	b.subs[sub.id] = sub
	go sub.pump()

	b.logger.Debug().Str("subscriber", name).Int("kinds", len(kinds)).Msg("Subscriber added")
	return sub
}

// Unsubscribe removes the subscription and drops anything still queued for it.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	_, ok := b.subs[sub.id]
	delete(b.subs, sub.id)
	b.mu.Unlock()

	if ok {
		sub.cancel()
		b.logger.Debug().Str("subscriber", sub.name).Msg("Subscriber removed")
	}
}

// Publish enqueues ev for every matching subscription and returns immediately.
func (b *Bus) Publish(ev events.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.logger.Warn().Str("kind", string(ev.Kind())).Msg("Publish on closed bus dropped")
		return
	}

	metrics.RecordEventPublished(string(ev.Kind()))
	for _, sub := range b.subs {
		if sub.wants(ev.Kind()) {
			sub.enqueue(ev)
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close stops accepting events. Each subscription delivers what it already
// queued and then closes its channel.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[uint64]*Subscription)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.finish()
	}
}
