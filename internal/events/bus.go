package events

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// DefaultBacklog is the per-subscriber buffer used when none is configured.
const DefaultBacklog = 1024

// Bus is a multi-producer, multi-consumer broadcast of Events.
//
// Each subscription owns a buffer of backlog events. When a buffer is full
// the event is dropped for that subscriber only and counted; publishers
// never wait. Create one Bus at process start, hand it to every publisher
// and subscriber, and Close it on the way out.
type Bus struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	backlog int
	closed  bool
	logger  *slog.Logger
}

var _ Publisher = (*Bus)(nil)

// NewBus creates a Bus whose subscriptions buffer up to backlog events.
// A non-positive backlog falls back to DefaultBacklog.
func NewBus(backlog int, logger *slog.Logger) *Bus {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:    make(map[*Subscription]struct{}),
		backlog: backlog,
		logger:  logger.With("component", "event_bus"),
	}
}

// Publish delivers event to every live subscription without blocking.
// Publishing on a closed bus is a no-op.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for sub := range b.subs {
		select {
		case sub.ch <- event:
		default:
			n := sub.dropped.Add(1)
			b.logger.DebugContext(ctx, "subscriber backlog full, event dropped",
				"event_kind", event.Kind,
				"space_id", event.SpaceID,
				"dropped_total", n)
		}
	}
}

// Subscribe registers a new subscription. On a closed bus the returned
// subscription is already closed.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		ch:  make(chan Event, b.backlog),
		bus: b,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		sub.closeChannel()
		return sub
	}

	b.subs[sub] = struct{}{}
	b.logger.Debug("subscriber added", "subscriber_count", len(b.subs))
	return sub
}

// SubscriberCount returns the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription. Further publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		sub.closeChannel()
		delete(b.subs, sub)
	}
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		sub.closeChannel()
	}
}

// Subscription is one consumer's view of the bus.
type Subscription struct {
	ch      chan Event
	bus     *Bus
	dropped atomic.Uint64
	once    sync.Once
}

// Events returns the channel of delivered events. It is closed when the
// subscription or the bus is closed.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Dropped returns how many events were lost because the backlog was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close detaches the subscription from the bus. It is safe to call more
// than once.
func (s *Subscription) Close() {
	s.bus.remove(s)
}

func (s *Subscription) closeChannel() {
	s.once.Do(func() { close(s.ch) })
}
