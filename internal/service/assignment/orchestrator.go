package assignment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MeDjb10/recruitment-platform-backend/internal/broker"
	"github.com/MeDjb10/recruitment-platform-backend/internal/models"
	"github.com/MeDjb10/recruitment-platform-backend/internal/repository"
	"github.com/MeDjb10/recruitment-platform-backend/internal/service/integration"
)

// Service is the surface the delivery layer depends on.
type Service interface {
	Manual(ctx context.Context, candidateID string, req *models.ManualAssignmentRequest) (models.CandidateOutcome, error)
	Bulk(ctx context.Context, req *models.BulkUpdateRequest) (*models.BulkOperationResult, error)
	Status(ctx context.Context, candidateID string) (*models.AssignmentRecord, error)
}

// Orchestrator runs the per-candidate state machine
// Decided -> Resolving -> Assigned | Failed. One candidate's failure
// never aborts the others.
type Orchestrator struct {
	users       integration.UserClient
	catalog     Catalog
	records     repository.AssignmentRepository
	publisher   broker.Publisher
	concurrency int
	logger      zerolog.Logger
}

func NewOrchestrator(
	users integration.UserClient,
	catalog Catalog,
	records repository.AssignmentRepository,
	publisher broker.Publisher,
	concurrency int,
	logger zerolog.Logger,
) *Orchestrator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Orchestrator{
		users:       users,
		catalog:     catalog,
		records:     records,
		publisher:   publisher,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (o *Orchestrator) Manual(ctx context.Context, candidateID string, req *models.ManualAssignmentRequest) (models.CandidateOutcome, error) {
	if candidateID == "" || req.AssignedTestID == "" || req.AssignedBy == "" {
		return models.CandidateOutcome{}, fmt.Errorf("%w: candidate id, assigned test id and assigner are required", ErrInvalidInput)
	}

	decision := models.CandidateDecision{
		CandidateID:       candidateID,
		Decision:          models.StatusApproved,
		DecidedBy:         req.AssignedBy,
		ExamDate:          req.ExamDate,
		AssignedTestID:    req.AssignedTestID,
		AdditionalTestIDs: req.AdditionalTestIDs,
	}

	return o.ProcessDecision(ctx, decision), nil
}

func (o *Orchestrator) Bulk(ctx context.Context, req *models.BulkUpdateRequest) (*models.BulkOperationResult, error) {
	// Whole-batch validation happens before any broker interaction.
	if len(req.CandidateIDs) == 0 {
		return nil, fmt.Errorf("%w: candidate ids must be a non-empty array", ErrInvalidInput)
	}
	if req.Status != models.StatusApproved && req.Status != models.StatusRejected {
		return nil, fmt.Errorf("%w: status must be either %q or %q", ErrInvalidInput, models.StatusApproved, models.StatusRejected)
	}
	if req.RequestedBy == "" {
		return nil, fmt.Errorf("%w: requested_by is required", ErrInvalidInput)
	}

	candidateIDs := dedupe(req.CandidateIDs)

	o.logger.Info().
		Int("candidates", len(candidateIDs)).
		Str("status", req.Status).
		Str("requested_by", req.RequestedBy).
		Msg("Processing bulk update")

	// Candidates are processed concurrently; the output slice is indexed
	// by input position so the caller can correlate results.
	outcomes := make([]models.CandidateOutcome, len(candidateIDs))
	slots := make(chan struct{}, o.concurrency)
	var wg sync.WaitGroup

	for i, candidateID := range candidateIDs {
		wg.Add(1)
		go func(i int, candidateID string) {
			defer wg.Done()
			slots <- struct{}{}
			defer func() { <-slots }()

			decision := models.CandidateDecision{
				CandidateID: candidateID,
				Decision:    req.Status,
				DecidedBy:   req.RequestedBy,
				ExamDate:    req.ExamDate,
			}
			outcomes[i] = o.ProcessDecision(ctx, decision)
		}(i, candidateID)
	}
	wg.Wait()

	result := &models.BulkOperationResult{PerCandidate: outcomes}
	for _, outcome := range outcomes {
		if outcome.Outcome == models.OutcomeAssigned {
			result.SuccessCount++
		} else {
			result.FailureCount++
		}
	}

	o.logger.Info().
		Int("success", result.SuccessCount).
		Int("failure", result.FailureCount).
		Msg("Bulk update completed")

	return result, nil
}

func (o *Orchestrator) Status(ctx context.Context, candidateID string) (*models.AssignmentRecord, error) {
	return o.records.GetByCandidateID(ctx, candidateID)
}

// ProcessDecision drives one candidate through the state machine and
// returns its terminal outcome. Decision events are published here; the
// broker-originated path goes through HandleCandidateApproved instead.
func (o *Orchestrator) ProcessDecision(ctx context.Context, decision models.CandidateDecision) models.CandidateOutcome {
	switch decision.Decision {
	case models.StatusRejected:
		return o.processRejection(ctx, decision)
	case models.StatusApproved:
		return o.processApproval(ctx, decision, true)
	default:
		return failed(decision.CandidateID, models.ReasonInvalidInput)
	}
}

// HandleCandidateApproved reacts to an approval event published by the
// user service. Candidates that already hold an assignment are skipped,
// which makes duplicate deliveries of the same approval a no-op.
func (o *Orchestrator) HandleCandidateApproved(ctx context.Context, event models.CandidateApprovedEvent) error {
	existing, err := o.records.GetByCandidateID(ctx, event.CandidateID)
	if err != nil {
		return fmt.Errorf("failed to look up existing assignment: %w", err)
	}
	if existing != nil {
		o.logger.Info().Str("candidate_id", event.CandidateID).Msg("Candidate already assigned, skipping")
		return nil
	}

	decision := models.CandidateDecision{
		CandidateID: event.CandidateID,
		Decision:    models.StatusApproved,
		DecidedBy:   event.DecidedBy,
		ExamDate:    event.ExamDate,
	}

	outcome := o.processApproval(ctx, decision, false)
	if outcome.Outcome == models.OutcomeFailed {
		return fmt.Errorf("assignment failed for candidate %s: %s", event.CandidateID, outcome.Reason)
	}
	return nil
}

func (o *Orchestrator) processRejection(ctx context.Context, decision models.CandidateDecision) models.CandidateOutcome {
	env, err := models.NewEvent(broker.EventCandidateRejected, models.CandidateRejectedEvent{
		CandidateID: decision.CandidateID,
		DecidedBy:   decision.DecidedBy,
		Status:      models.StatusRejected,
	})
	if err == nil {
		err = o.publisher.Publish(ctx, env)
	}
	if err != nil {
		o.logger.Error().Err(err).Str("candidate_id", decision.CandidateID).Msg("Failed to publish rejection event")
		return failed(decision.CandidateID, models.ReasonPersistenceError)
	}

	// A rejection is a normal terminal branch, not an error.
	return models.CandidateOutcome{
		CandidateID: decision.CandidateID,
		Outcome:     models.OutcomeSkipped,
		Reason:      models.ReasonNotApproved,
	}
}

func (o *Orchestrator) processApproval(ctx context.Context, decision models.CandidateDecision, publishDecision bool) models.CandidateOutcome {
	candidate, err := o.users.GetCandidate(ctx, decision.CandidateID)
	if err != nil {
		o.logger.Error().Err(err).Str("candidate_id", decision.CandidateID).Msg("Failed to fetch candidate record")
		return failed(decision.CandidateID, models.ReasonPersistenceError)
	}
	if candidate == nil {
		return failed(decision.CandidateID, models.ReasonInvalidInput)
	}

	if publishDecision {
		env, err := models.NewEvent(broker.EventCandidateApproved, models.CandidateApprovedEvent{
			CandidateID:    candidate.ID,
			Email:          candidate.Email,
			FirstName:      candidate.FirstName,
			LastName:       candidate.LastName,
			EducationLevel: candidate.EducationLevel,
			JobPosition:    candidate.JobPosition,
			DecidedBy:      decision.DecidedBy,
			ExamDate:       decision.ExamDate,
		})
		if err == nil {
			err = o.publisher.Publish(ctx, env)
		}
		if err != nil {
			o.logger.Error().Err(err).Str("candidate_id", candidate.ID).Msg("Failed to publish approval event")
			return failed(decision.CandidateID, models.ReasonPersistenceError)
		}
	}

	testIDs, reason := o.resolveTests(ctx, candidate, decision)
	if reason != "" {
		return failed(decision.CandidateID, reason)
	}

	record := &models.AssignmentRecord{
		ID:                 uuid.NewString(),
		CandidateID:        candidate.ID,
		AssignedTestIDs:    testIDs,
		AssignedBy:         decision.DecidedBy,
		IsManualAssignment: decision.AssignedTestID != "",
		ExamDate:           decision.ExamDate,
		AssignedAt:         time.Now().UTC(),
	}

	if err := o.records.Save(ctx, record); err != nil {
		o.logger.Error().Err(err).Str("candidate_id", candidate.ID).Msg("Failed to persist assignment")
		return failed(decision.CandidateID, models.ReasonPersistenceError)
	}

	env, err := models.NewEvent(broker.EventAssignmentCompleted, models.AssignmentCompletedEvent{
		CandidateID:     candidate.ID,
		AssignedTestIDs: testIDs,
		AssignedBy:      decision.DecidedBy,
		ExamDate:        decision.ExamDate,
		StatusUpdate:    models.StatusApproved,
		CompletedAt:     record.AssignedAt,
	})
	if err == nil {
		err = o.publisher.Publish(ctx, env)
	}
	if err != nil {
		o.logger.Error().Err(err).Str("candidate_id", candidate.ID).Msg("Failed to publish completion event")
		return failed(decision.CandidateID, models.ReasonPersistenceError)
	}

	o.logger.Info().
		Str("candidate_id", candidate.ID).
		Strs("test_ids", testIDs).
		Msg("Test assignment completed")

	return models.CandidateOutcome{
		CandidateID: decision.CandidateID,
		Outcome:     models.OutcomeAssigned,
	}
}

// resolveTests returns the test set to assign, or a failure reason. An
// explicit test ID skips catalog resolution entirely.
func (o *Orchestrator) resolveTests(ctx context.Context, candidate *models.Candidate, decision models.CandidateDecision) ([]string, string) {
	if decision.AssignedTestID != "" {
		return dedupe(append([]string{decision.AssignedTestID}, decision.AdditionalTestIDs...)), ""
	}

	tests, err := o.catalog.ListTests(ctx, models.TestFilter{
		JobPosition:    candidate.JobPosition,
		EducationLevel: candidate.EducationLevel,
	})
	if err != nil {
		o.logger.Error().Err(err).Str("candidate_id", candidate.ID).Msg("Test catalog lookup failed")
		return nil, models.ReasonCatalogUnavailable
	}
	if len(tests) == 0 {
		o.logger.Error().Str("candidate_id", candidate.ID).Msg("Test catalog returned no eligible tests")
		return nil, models.ReasonCatalogUnavailable
	}

	// The catalog orders results most-suitable-first.
	return []string{tests[0].TestID}, ""
}

func failed(candidateID, reason string) models.CandidateOutcome {
	return models.CandidateOutcome{
		CandidateID: candidateID,
		Outcome:     models.OutcomeFailed,
		Reason:      reason,
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
