package events

// Subscriber is an interface for event consumers.
// Implementations adapt the change feed to specific transports (SSE today;
// WebSocket or webhooks would plug in the same way).
type Subscriber interface {
	// Send delivers an event to the subscriber.
	// Implementations should be non-blocking and handle errors gracefully.
	Send(Event) error

	// Close cleanly shuts down the subscriber.
	Close() error
}

// Publisher is the write side of the change feed. The booking service depends
// on this interface rather than on the Broker directly.
type Publisher interface {
	Publish(Event)
}
