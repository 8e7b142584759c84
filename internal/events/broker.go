package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Broker manages event distribution to multiple subscribers.
// It is the central hub for booking change events, fanning them out to all
// registered subscribers concurrently.
type Broker struct {
	subscribers []Subscriber
	events      chan Event
	register    chan Subscriber
	unregister  chan Subscriber
	done        chan struct{}
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

// NewBroker creates a new event broker.
func NewBroker(logger *zerolog.Logger) *Broker {
	return &Broker{
		subscribers: make([]Subscriber, 0),
		events:      make(chan Event, 256),
		register:    make(chan Subscriber, 10),
		unregister:  make(chan Subscriber, 10),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// Run starts the broker's event loop. Should be called in a goroutine.
// The broker will run until the context is cancelled.
func (b *Broker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			// Graceful shutdown: close all subscribers
			b.mu.Lock()
			for _, sub := range b.subscribers {
				_ = sub.Close()
			}
			b.subscribers = nil
			b.mu.Unlock()

			// Unblock any Subscribe/Unsubscribe callers, then close
			// subscribers still sitting in the registration buffer.
			close(b.done)
			for {
				select {
				case sub := <-b.register:
					_ = sub.Close()
				default:
					b.logger.Info().Msg("event broker shut down")
					return
				}
			}

		case sub := <-b.register:
			b.mu.Lock()
			b.subscribers = append(b.subscribers, sub)
			total := len(b.subscribers)
			b.mu.Unlock()
			b.logger.Debug().
				Int("total_subscribers", total).
				Msg("subscriber registered")

		case sub := <-b.unregister:
			b.mu.Lock()
			for i, s := range b.subscribers {
				if s == sub {
					b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
					_ = s.Close()
					break
				}
			}
			total := len(b.subscribers)
			b.mu.Unlock()
			b.logger.Debug().
				Int("total_subscribers", total).
				Msg("subscriber unregistered")

		case event := <-b.events:
			b.mu.RLock()
			subs := make([]Subscriber, len(b.subscribers))
			copy(subs, b.subscribers)
			b.mu.RUnlock()

			// Fan-out to all subscribers concurrently
			for _, sub := range subs {
				go func(s Subscriber, e Event) {
					if err := s.Send(e); err != nil {
						b.logger.Warn().
							Err(err).
							Str("event_type", string(e.Type)).
							Msg("failed to send event to subscriber")
					}
				}(sub, event)
			}
		}
	}
}

// Publish sends an event to all subscribers. Non-blocking: if the broker's
// buffer is full the event is dropped, which is safe because consumers
// re-query the store on every event they do receive.
func (b *Broker) Publish(event Event) {
	select {
	case b.events <- event:
	default:
		b.logger.Warn().
			Str("event_type", string(event.Type)).
			Msg("event channel full, event dropped")
	}
}

// Subscribe registers a new subscriber to receive events.
// After the broker has shut down the subscriber is closed immediately
// instead of blocking on a registration that will never be processed.
func (b *Broker) Subscribe(sub Subscriber) {
	select {
	case <-b.done:
		_ = sub.Close()
		return
	default:
	}
	select {
	case b.register <- sub:
	case <-b.done:
		_ = sub.Close()
	}
}

// Unsubscribe removes a subscriber from receiving events.
// No-op after shutdown; the broker closed every subscriber on its way out.
func (b *Broker) Unsubscribe(sub Subscriber) {
	select {
	case <-b.done:
		return
	default:
	}
	select {
	case b.unregister <- sub:
	case <-b.done:
	}
}

// SubscriberCount returns the current number of subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
