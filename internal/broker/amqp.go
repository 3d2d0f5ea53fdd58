package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	publishTimeout     = 5 * time.Second
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second
)

type subscription struct {
	queue   string
	handler HandlerFunc
}

// AMQPTransport holds the process-scoped broker connection. It declares
// the full topology on connect and re-dials with backoff when the
// connection drops, re-establishing every registered consumer.
type AMQPTransport struct {
	url    string
	logger zerolog.Logger

	mu     sync.RWMutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	subs   []subscription
	closed bool
}

func ConnectAMQP(url string, logger zerolog.Logger) (*AMQPTransport, error) {
	t := &AMQPTransport{
		url:    url,
		logger: logger,
	}

	if err := t.connect(); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *AMQPTransport) connect() error {
	conn, err := amqp.Dial(t.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	t.mu.Lock()
	t.conn = conn
	t.ch = ch
	subs := make([]subscription, len(t.subs))
	copy(subs, t.subs)
	t.mu.Unlock()

	for _, sub := range subs {
		if err := t.consume(ch, sub); err != nil {
			t.logger.Error().Err(err).Str("queue", sub.queue).Msg("Failed to restore consumer")
		}
	}

	go t.monitor(conn)

	t.logger.Info().Str("url", t.url).Msg("Connected to RabbitMQ")
	return nil
}

func declareTopology(ch *amqp.Channel) error {
	for _, exchange := range Exchanges() {
		err := ch.ExchangeDeclare(
			exchange, // name
			"topic",  // type
			true,     // durable
			false,    // auto-deleted
			false,    // internal
			false,    // no-wait
			nil,      // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
		}
	}

	for _, b := range Bindings() {
		queue, err := ch.QueueDeclare(
			b.Queue, // name
			true,    // durable
			false,   // delete when unused
			false,   // exclusive
			false,   // no-wait
			nil,     // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", b.Queue, err)
		}

		err = ch.QueueBind(queue.Name, b.RoutingKey, b.Exchange, false, nil)
		if err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", b.Queue, err)
		}
	}

	return nil
}

// monitor re-dials with exponential backoff after an unexpected close.
func (t *AMQPTransport) monitor(conn *amqp.Connection) {
	closeErr := <-conn.NotifyClose(make(chan *amqp.Error, 1))
	if closeErr == nil {
		return // graceful shutdown
	}

	t.logger.Warn().Str("reason", closeErr.Error()).Msg("RabbitMQ connection lost, reconnecting")

	t.mu.Lock()
	t.conn = nil
	t.ch = nil
	t.mu.Unlock()

	delay := reconnectBaseDelay
	for {
		t.mu.RLock()
		closed := t.closed
		t.mu.RUnlock()
		if closed {
			return
		}

		time.Sleep(delay)

		err := t.connect()
		if err == nil {
			return
		}
		t.logger.Error().Err(err).Dur("retry_in", delay).Msg("RabbitMQ reconnect failed")

		delay *= 2
		if delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}
	}
}

func (t *AMQPTransport) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	t.mu.RLock()
	ch := t.ch
	t.mu.RUnlock()

	if ch == nil {
		return fmt.Errorf("broker unavailable")
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := ch.PublishWithContext(
		publishCtx,
		exchange,   // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %s.%s: %w", exchange, routingKey, err)
	}

	return nil
}

func (t *AMQPTransport) Subscribe(ctx context.Context, queue string, handler HandlerFunc) error {
	sub := subscription{queue: queue, handler: handler}

	t.mu.Lock()
	t.subs = append(t.subs, sub)
	ch := t.ch
	t.mu.Unlock()

	if ch == nil {
		return fmt.Errorf("broker unavailable")
	}

	return t.consume(ch, sub)
}

func (t *AMQPTransport) consume(ch *amqp.Channel, sub subscription) error {
	msgs, err := ch.Consume(
		sub.queue, // queue
		"",        // consumer
		false,     // auto-ack
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		return fmt.Errorf("failed to consume from %s: %w", sub.queue, err)
	}

	go func() {
		for msg := range msgs {
			if err := sub.handler(context.Background(), msg.Body); err != nil {
				t.logger.Error().Err(err).Str("queue", sub.queue).Msg("Message handler failed, redelivering")
				msg.Nack(false, true)
				continue
			}
			msg.Ack(false)
		}
		t.logger.Warn().Str("queue", sub.queue).Msg("Delivery channel closed")
	}()

	t.logger.Info().Str("queue", sub.queue).Msg("Consumer started")
	return nil
}

func (t *AMQPTransport) Ready() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.conn != nil && !t.conn.IsClosed()
}

func (t *AMQPTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	ch := t.ch
	conn := t.conn
	t.ch = nil
	t.conn = nil
	t.mu.Unlock()

	if ch != nil {
		if err := ch.Close(); err != nil {
			t.logger.Error().Err(err).Msg("Failed to close RabbitMQ channel")
		}
	}

	if conn != nil {
		if err := conn.Close(); err != nil {
			t.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
			return err
		}
	}

	t.logger.Info().Msg("RabbitMQ connection closed")
	return nil
}
