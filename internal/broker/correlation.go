package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MeDjb10/recruitment-platform-backend/internal/models"
)

var (
	ErrRequestTimeout       = errors.New("no correlated response within deadline")
	ErrDuplicateCorrelation = errors.New("waiter already registered for correlation id")
)

// CorrelationClient bridges a request/response exchange over the
// one-way transport. Pairing is by correlation identifier only; arrival
// order across concurrent requests carries no meaning.
type CorrelationClient struct {
	publisher    Publisher
	requestEvent string
	replyEvent   string
	logger       zerolog.Logger

	mu      sync.Mutex
	pending map[string]chan models.Envelope
}

func NewCorrelationClient(publisher Publisher, requestEvent, replyEvent string, logger zerolog.Logger) (*CorrelationClient, error) {
	if err := ValidateEvents(requestEvent, replyEvent); err != nil {
		return nil, err
	}

	return &CorrelationClient{
		publisher:    publisher,
		requestEvent: requestEvent,
		replyEvent:   replyEvent,
		logger:       logger,
		pending:      make(map[string]chan models.Envelope),
	}, nil
}

// Request publishes a request envelope and blocks until the matching
// response arrives or the timeout elapses. The waiter is always removed
// before returning, so a late response becomes a logged no-op.
func (c *CorrelationClient) Request(ctx context.Context, payload interface{}, timeout time.Duration) (json.RawMessage, error) {
	correlationID := uuid.NewString()

	waiter := make(chan models.Envelope, 1)
	if err := c.register(correlationID, waiter); err != nil {
		return nil, err
	}
	defer c.unregister(correlationID)

	env, err := models.NewRequest(c.requestEvent, payload, correlationID, c.replyEvent)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	if err := c.publisher.Publish(ctx, env); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-waiter:
		if resp.Error != "" {
			return nil, fmt.Errorf("remote responder failed: %s", resp.Error)
		}
		return resp.Payload, nil
	case <-ctx.Done():
		// Caller cancellation abandons the waiter just like a timeout;
		// the deferred unregister drops it and a late response is
		// discarded by HandleResponse.
		return nil, ctx.Err()
	case <-timer.C:
		c.logger.Warn().
			Str("correlation_id", correlationID).
			Dur("timeout", timeout).
			Msg("Correlated request timed out")
		return nil, ErrRequestTimeout
	}
}

// HandleResponse is the consumer handler for the reply queue. Responses
// with no pending waiter (timed out, or duplicate delivery) are
// discarded so orphans never accumulate.
func (c *CorrelationClient) HandleResponse(ctx context.Context, body []byte) error {
	var env models.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.logger.Error().Err(err).Msg("Discarding malformed response envelope")
		return nil
	}

	if env.CorrelationID == "" {
		c.logger.Warn().Msg("Discarding response without correlation id")
		return nil
	}

	c.mu.Lock()
	waiter, ok := c.pending[env.CorrelationID]
	if ok {
		delete(c.pending, env.CorrelationID)
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Info().
			Str("correlation_id", env.CorrelationID).
			Msg("Discarding response with no pending waiter")
		return nil
	}

	waiter <- env
	return nil
}

// PendingCount reports the number of registered waiters.
func (c *CorrelationClient) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *CorrelationClient) register(correlationID string, waiter chan models.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.pending[correlationID]; exists {
		return ErrDuplicateCorrelation
	}
	c.pending[correlationID] = waiter
	return nil
}

func (c *CorrelationClient) unregister(correlationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, correlationID)
}
