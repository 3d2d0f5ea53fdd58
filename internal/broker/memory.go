package broker

import (
	"context"
	"sync"
)

// MemoryMessage records one publish through the in-memory transport.
type MemoryMessage struct {
	Exchange   string
	RoutingKey string
	Body       []byte
}

// MemoryTransport routes published messages to subscribed queues
// through the same topology table the AMQP transport declares. It
// exists so consumers, publishers and the correlation client can be
// exercised without a broker.
type MemoryTransport struct {
	mu        sync.Mutex
	handlers  map[string][]HandlerFunc
	published []MemoryMessage
	ready     bool
}

func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{
		handlers: make(map[string][]HandlerFunc),
		ready:    true,
	}
}

func (t *MemoryTransport) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	t.mu.Lock()
	t.published = append(t.published, MemoryMessage{Exchange: exchange, RoutingKey: routingKey, Body: body})

	var handlers []HandlerFunc
	for _, b := range Bindings() {
		if b.Exchange != exchange || b.RoutingKey != routingKey {
			continue
		}
		handlers = append(handlers, t.handlers[b.Queue]...)
	}
	t.mu.Unlock()

	// Synchronous delivery keeps tests deterministic. Handler errors are
	// swallowed the way a real publish never sees consumer failures.
	for _, handler := range handlers {
		_ = handler(ctx, body)
	}

	return nil
}

func (t *MemoryTransport) Subscribe(ctx context.Context, queue string, handler HandlerFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[queue] = append(t.handlers[queue], handler)
	return nil
}

func (t *MemoryTransport) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ready
}

func (t *MemoryTransport) SetReady(ready bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ready = ready
}

func (t *MemoryTransport) Close() error {
	return nil
}

func (t *MemoryTransport) Published() []MemoryMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]MemoryMessage, len(t.published))
	copy(out, t.published)
	return out
}
