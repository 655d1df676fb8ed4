// Package events delivers named push events (update, delete, poll) from a
// transport into the viewport engine. The transport is abstracted behind a
// small pub/sub contract with in-memory, NATS and websocket
// implementations.
package events

import "context"

// Message is a received push event payload.
type Message interface {
	// Data returns the raw message payload.
	Data() []byte

	// Subject returns the message subject/topic.
	Subject() string
}

// Consumer consumes messages for a single subject.
type Consumer interface {
	// Subscribe starts consuming and returns a channel. The channel is
	// closed when the context is cancelled or the transport ends.
	Subscribe(ctx context.Context) (<-chan Message, error)

	// Close stops the consumer.
	Close() error
}

// Provider creates consumers for named subjects. It abstracts the
// underlying transport (NATS, in-memory, websocket) so implementations can
// be swapped transparently.
type Provider interface {
	// Consumer creates a consumer for the given subject.
	Consumer(subject string) (Consumer, error)

	// Close releases transport resources.
	Close() error
}
