// Package messagequeue defines the message queue port (interface).
package messagequeue

import "context"

// Publisher is the port interface for emitting domain events.
type Publisher interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Drain flushes pending publishes before closing the connection.
	Drain() error

	// Close shuts down the connection immediately.
	Close() error

	// IsConnected reports whether the publisher is currently connected.
	IsConnected() bool
}

// Subject constants for customer events.
const (
	SubjectPrefix          = "customers"
	SubjectCustomerCreated = "customers.created"
	SubjectCustomersReset  = "customers.reset" // collection cleared by an operator
)

// Handler processes a message received from the queue.
// The context carries request-scoped values such as the request ID.
type Handler func(ctx context.Context, subject string, data []byte) error

// Subscriber is implemented by queues that can also consume messages.
type Subscriber interface {
	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)
}
