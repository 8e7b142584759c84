package events

import (
	"errors"
	"sync"
)

// ErrSubscriberClosed is returned by Send after the subscriber is closed.
var ErrSubscriberClosed = errors.New("subscriber closed")

// ChanSubscriber adapts the change feed to a Go channel. It is what the SSE
// availability stream uses: one subscriber per connected client.
type ChanSubscriber struct {
	ch     chan Event
	mu     sync.Mutex
	closed bool
}

// NewChanSubscriber creates a channel-backed subscriber with the given buffer.
func NewChanSubscriber(buffer int) *ChanSubscriber {
	return &ChanSubscriber{
		ch: make(chan Event, buffer),
	}
}

// Send delivers an event without blocking. Events that do not fit in the
// buffer are dropped; the consumer re-queries on the next event it receives.
func (s *ChanSubscriber) Send(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSubscriberClosed
	}
	select {
	case s.ch <- e:
	default:
		// Buffer full, drop. Safe because consumers re-derive state.
	}
	return nil
}

// Events returns the receive side of the subscriber.
func (s *ChanSubscriber) Events() <-chan Event {
	return s.ch
}

// Close shuts the subscriber down. Safe to call more than once.
func (s *ChanSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}
