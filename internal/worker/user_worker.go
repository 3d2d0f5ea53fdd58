package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/MeDjb10/recruitment-platform-backend/internal/broker"
	"github.com/MeDjb10/recruitment-platform-backend/internal/models"
	"github.com/MeDjb10/recruitment-platform-backend/internal/service/user"
)

// UserWorker mirrors assignment completions and rejections onto
// candidate profiles.
type UserWorker struct {
	transport broker.Transport
	users     user.Service
	logger    zerolog.Logger
}

func NewUserWorker(transport broker.Transport, users user.Service, logger zerolog.Logger) *UserWorker {
	return &UserWorker{
		transport: transport,
		users:     users,
		logger:    logger,
	}
}

func (w *UserWorker) Start(ctx context.Context) error {
	completedQueue, err := broker.QueueFor(broker.EventAssignmentCompleted)
	if err != nil {
		return err
	}
	if err := w.transport.Subscribe(ctx, completedQueue, w.handleCompleted); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", completedQueue, err)
	}

	rejectedQueue, err := broker.QueueFor(broker.EventCandidateRejected)
	if err != nil {
		return err
	}
	if err := w.transport.Subscribe(ctx, rejectedQueue, w.handleRejected); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", rejectedQueue, err)
	}

	w.logger.Info().Msg("User worker started")
	return nil
}

func (w *UserWorker) handleCompleted(ctx context.Context, body []byte) error {
	var env models.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		w.logger.Error().Err(err).Msg("Discarding malformed completion envelope")
		return nil
	}

	var event models.AssignmentCompletedEvent
	if err := json.Unmarshal(env.Payload, &event); err != nil {
		w.logger.Error().Err(err).Msg("Discarding completion event with malformed payload")
		return nil
	}

	return w.users.HandleAssignmentCompleted(ctx, event)
}

func (w *UserWorker) handleRejected(ctx context.Context, body []byte) error {
	var env models.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		w.logger.Error().Err(err).Msg("Discarding malformed rejection envelope")
		return nil
	}

	var event models.CandidateRejectedEvent
	if err := json.Unmarshal(env.Payload, &event); err != nil {
		w.logger.Error().Err(err).Msg("Discarding rejection event with malformed payload")
		return nil
	}

	return w.users.HandleCandidateRejected(ctx, event)
}
