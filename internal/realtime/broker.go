package realtime

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when subscribing to a closed feed.
var ErrClosed = errors.New("realtime: feed closed")

// Feed hands out subscriptions to the change stream.
type Feed interface {
	Subscribe(ctx context.Context) (*Subscription, error)
}

// Publisher accepts change events.
type Publisher interface {
	Publish(ev Event)
}

// Subscription is a single, non-restartable view of the change stream.
// Events stops delivering and is closed once Close is called or the
// subscribing context ends.
type Subscription struct {
	events chan Event
	lagged bool        // guarded by Broker.mu
	stop   func() bool // guarded by Broker.mu

	once   sync.Once
	cancel func()
}

// Events returns the stream of change events.
func (s *Subscription) Events() <-chan Event { return s.events }

// Close releases the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
}

// Broker fans events out to every live subscription. A subscriber that falls
// behind drops events and receives a resync marker as soon as it has room.
type Broker struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	buffer int
	closed bool
}

// NewBroker creates a broker whose subscriptions buffer up to buffer events.
func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = 1
	}
	return &Broker{subs: make(map[*Subscription]struct{}), buffer: buffer}
}

var _ Feed = (*Broker)(nil)
var _ Publisher = (*Broker)(nil)

// Subscribe registers a new subscription that lives until Close or ctx ends.
func (b *Broker) Subscribe(ctx context.Context) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub := &Subscription{events: make(chan Event, b.buffer)}
	sub.cancel = func() { b.remove(sub) }
	b.subs[sub] = struct{}{}
	// The callback blocks on b.mu until Subscribe returns, so stop is set first.
	sub.stop = context.AfterFunc(ctx, func() { sub.Close() })
	return sub, nil
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; ok {
		b.release(sub)
	}
}

// Publish delivers ev to every subscription without blocking.
func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		if sub.lagged {
			if !trySend(sub.events, Resync()) {
				continue
			}
			sub.lagged = false
			if ev.Kind == KindResync {
				continue
			}
		}
		if !trySend(sub.events, ev) {
			sub.lagged = true
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close ends every subscription and rejects new ones.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		b.release(sub)
	}
}

// release drops sub. b.mu must be held.
func (b *Broker) release(sub *Subscription) {
	delete(b.subs, sub)
	close(sub.events)
	if sub.stop != nil {
		sub.stop()
	}
}

func trySend(ch chan Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	default:
		return false
	}
}
