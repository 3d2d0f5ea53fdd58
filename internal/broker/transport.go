package broker

import "context"

// HandlerFunc processes one delivered message body. A nil return
// acknowledges the message; an error leaves it to the transport's
// redelivery policy, so handlers must be safe to re-invoke.
type HandlerFunc func(ctx context.Context, body []byte) error

// Transport is the publish/subscribe seam between the services and the
// broker. Production uses AMQP; tests substitute the in-memory
// implementation.
type Transport interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
	Subscribe(ctx context.Context, queue string, handler HandlerFunc) error
	Ready() bool
	Close() error
}
