package bus

import (
	"sync"

	"github.com/StrathCole/oracle-watch/pkg/events"
)

// Subscription receives the events it asked for, in publish order.
type Subscription struct {
	id    uint64
	name  string
	kinds map[events.Kind]struct{}

	mu      sync.Mutex
	queue   []events.Event
	notify  chan struct{}
	closing chan struct{}
	done    chan struct{}
	once    sync.Once
	stop    sync.Once

	out chan events.Event
}

func newSubscription(name string, kinds []events.Kind) *Subscription {
	sub := &Subscription{
		name:    name,
		notify:  make(chan struct{}, 1),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
		out:     make(chan events.Event),
	}
	if len(kinds) > 0 {
		sub.kinds = make(map[events.Kind]struct{}, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = struct{}{}
		}
	}
	return sub
}

// Name returns the subscriber name.
func (s *Subscription) Name() string {
	return s.name
}

// C returns the delivery channel. It is closed when the bus closes or the
// subscription is removed.
func (s *Subscription) C() <-chan events.Event {
	return s.out
}

// Pending returns the number of queued, undelivered events.
func (s *Subscription) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Subscription) wants(k events.Kind) bool {
	if s.kinds == nil {
		return true
	}
	_, ok := s.kinds[k]
	return ok
}

func (s *Subscription) enqueue(ev events.Event) {
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription) take() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.queue
	s.queue = nil
	return batch
}

// finish lets the pump drain the queue and then close the channel.
func (s *Subscription) finish() {
	s.once.Do(func() { close(s.closing) })
}

// cancel stops the pump without draining.
func (s *Subscription) cancel() {
	s.stop.Do(func() { close(s.done) })
}

func (s *Subscription) pump() {
	defer close(s.out)
	for {
		select {
		case <-s.notify:
		case <-s.closing:
			s.deliver(s.take())
			return
		case <-s.done:
			return
		}
		if !s.deliver(s.take()) {
			return
		}
	}
}

func (s *Subscription) deliver(batch []events.Event) bool {
	for _, ev := range batch {
		select {
		case s.out <- ev:
		case <-s.done:
			return false
		}
	}
	return true
}
