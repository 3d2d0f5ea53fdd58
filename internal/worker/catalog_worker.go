package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/MeDjb10/recruitment-platform-backend/internal/broker"
	"github.com/MeDjb10/recruitment-platform-backend/internal/models"
	"github.com/MeDjb10/recruitment-platform-backend/internal/service/catalog"
)

// CatalogWorker answers test list requests over the broker.
type CatalogWorker struct {
	transport broker.Transport
	publisher broker.Publisher
	catalog   catalog.Service
	logger    zerolog.Logger
}

func NewCatalogWorker(
	transport broker.Transport,
	publisher broker.Publisher,
	svc catalog.Service,
	logger zerolog.Logger,
) *CatalogWorker {
	return &CatalogWorker{
		transport: transport,
		publisher: publisher,
		catalog:   svc,
		logger:    logger,
	}
}

func (w *CatalogWorker) Start(ctx context.Context) error {
	queue, err := broker.QueueFor(broker.EventTestListRequest)
	if err != nil {
		return err
	}
	if err := w.transport.Subscribe(ctx, queue, w.handleRequest); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", queue, err)
	}

	w.logger.Info().Msg("Catalog worker started")
	return nil
}

func (w *CatalogWorker) handleRequest(ctx context.Context, body []byte) error {
	var env models.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		w.logger.Error().Err(err).Msg("Discarding malformed test list request")
		return nil
	}
	if env.CorrelationID == "" {
		w.logger.Warn().Msg("Discarding test list request without correlation id")
		return nil
	}

	replyEvent := env.ReplyTo
	if replyEvent == "" {
		replyEvent = broker.EventTestListResponse
	}
	if err := broker.ValidateEvents(replyEvent); err != nil {
		w.logger.Warn().Str("reply_to", env.ReplyTo).Msg("Discarding request with unroutable reply event")
		return nil
	}

	var req models.TestListRequest
	if err := json.Unmarshal(env.Payload, &req); err != nil {
		w.logger.Error().Err(err).Msg("Discarding test list request with malformed payload")
		return nil
	}

	tests, listErr := w.catalog.ListTests(ctx, req.Filter)

	// Responder failures travel back inside the response envelope so
	// the requester fails fast instead of waiting out its timeout.
	resp, err := models.NewResponse(replyEvent, env.CorrelationID, models.TestListResponse{Tests: tests}, listErr)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to build test list response")
		return nil
	}

	if err := w.publisher.Publish(ctx, resp); err != nil {
		return fmt.Errorf("failed to publish test list response: %w", err)
	}

	w.logger.Debug().
		Str("correlation_id", env.CorrelationID).
		Int("tests", len(tests)).
		Msg("Answered test list request")

	return nil
}
