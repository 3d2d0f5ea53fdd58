package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/MeDjb10/recruitment-platform-backend/internal/models"
)

type Publisher interface {
	Publish(ctx context.Context, env models.Envelope) error
}

// TopologyPublisher publishes envelopes for a fixed set of logical
// events resolved against the topology table at construction, so an
// unknown event name fails at service boot instead of at publish time.
type TopologyPublisher struct {
	transport Transport
	bindings  map[string]Binding
	logger    zerolog.Logger
}

func NewPublisher(transport Transport, logger zerolog.Logger, events ...string) (*TopologyPublisher, error) {
	bindings := make(map[string]Binding, len(events))
	for _, event := range events {
		b, err := LookupBinding(event)
		if err != nil {
			return nil, err
		}
		bindings[event] = b
	}

	return &TopologyPublisher{
		transport: transport,
		bindings:  bindings,
		logger:    logger,
	}, nil
}

func (p *TopologyPublisher) Publish(ctx context.Context, env models.Envelope) error {
	b, ok := p.bindings[env.EventName]
	if !ok {
		return fmt.Errorf("event %q not registered with this publisher", env.EventName)
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err := p.transport.Publish(ctx, b.Exchange, b.RoutingKey, body); err != nil {
		return err
	}

	p.logger.Debug().
		Str("event", env.EventName).
		Str("exchange", b.Exchange).
		Str("routing_key", b.RoutingKey).
		Msg("Event published")

	return nil
}
