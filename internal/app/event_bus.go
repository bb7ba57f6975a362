package app

import (
	"sync"

	"github.com/yourusername/offline-player-go/internal/domain"
	"go.uber.org/zap"
)

const subscriberBuffer = 64

// EventBus fans out domain events to explicit subscribers
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[int]chan domain.Event
	nextID      int
	closed      bool
	logger      *zap.Logger
}

// NewEventBus creates a new event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[int]chan domain.Event),
		logger:      logger,
	}
}

// Subscribe returns a channel of events and a function that ends the subscription
func (b *EventBus) Subscribe() (<-chan domain.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan domain.Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subscribers[id]; ok {
				delete(b.subscribers, id)
				close(sub)
			}
		})
	}
}

// Publish delivers an event to every subscriber without blocking.
// Slow subscribers miss events rather than stall the publisher.
func (b *EventBus) Publish(event domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for id, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.logger.Warn("Dropping event for slow subscriber",
				zap.Int("subscriber", id),
				zap.String("kind", string(event.Kind)),
				zap.String("title", event.Title))
		}
	}
}

// Close ends all subscriptions
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
}
