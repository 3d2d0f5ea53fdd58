package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/MeDjb10/recruitment-platform-backend/internal/broker"
	"github.com/MeDjb10/recruitment-platform-backend/internal/models"
	"github.com/MeDjb10/recruitment-platform-backend/internal/service/assignment"
)

// AssignmentWorker consumes approval events and correlated catalog
// responses for the assignment service.
type AssignmentWorker struct {
	transport    broker.Transport
	orchestrator *assignment.Orchestrator
	correlation  *broker.CorrelationClient
	logger       zerolog.Logger
}

func NewAssignmentWorker(
	transport broker.Transport,
	orchestrator *assignment.Orchestrator,
	correlation *broker.CorrelationClient,
	logger zerolog.Logger,
) *AssignmentWorker {
	return &AssignmentWorker{
		transport:    transport,
		orchestrator: orchestrator,
		correlation:  correlation,
		logger:       logger,
	}
}

func (w *AssignmentWorker) Start(ctx context.Context) error {
	approvedQueue, err := broker.QueueFor(broker.EventCandidateApproved)
	if err != nil {
		return err
	}
	if err := w.transport.Subscribe(ctx, approvedQueue, w.handleApproved); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", approvedQueue, err)
	}

	responseQueue, err := broker.QueueFor(broker.EventTestListResponse)
	if err != nil {
		return err
	}
	if err := w.transport.Subscribe(ctx, responseQueue, w.correlation.HandleResponse); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", responseQueue, err)
	}

	w.logger.Info().Msg("Assignment worker started")
	return nil
}

func (w *AssignmentWorker) handleApproved(ctx context.Context, body []byte) error {
	var env models.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		w.logger.Error().Err(err).Msg("Discarding malformed approval envelope")
		return nil
	}

	var event models.CandidateApprovedEvent
	if err := json.Unmarshal(env.Payload, &event); err != nil {
		w.logger.Error().Err(err).Msg("Discarding approval event with malformed payload")
		return nil
	}
	if event.CandidateID == "" {
		w.logger.Warn().Msg("Discarding approval event without candidate id")
		return nil
	}

	w.logger.Info().Str("candidate_id", event.CandidateID).Msg("Received candidate approval event")

	return w.orchestrator.HandleCandidateApproved(ctx, event)
}
