package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/MeDjb10/recruitment-platform-backend/internal/broker"
	"github.com/MeDjb10/recruitment-platform-backend/internal/models"
	"github.com/MeDjb10/recruitment-platform-backend/internal/repository"
)

var (
	ErrInvalidDecision   = errors.New("invalid decision")
	ErrCandidateNotFound = errors.New("candidate not found")
)

type Service interface {
	GetCandidate(ctx context.Context, candidateID string) (*models.Candidate, error)
	Decide(ctx context.Context, candidateID, status, decidedBy string, examDate *time.Time) (*models.Candidate, error)
	HandleAssignmentCompleted(ctx context.Context, event models.AssignmentCompletedEvent) error
	HandleCandidateRejected(ctx context.Context, event models.CandidateRejectedEvent) error
}

type service struct {
	candidates repository.CandidateRepository
	ledger     repository.ProcessedEventRepository
	publisher  broker.Publisher
	logger     zerolog.Logger
}

func NewService(
	candidates repository.CandidateRepository,
	ledger repository.ProcessedEventRepository,
	publisher broker.Publisher,
	logger zerolog.Logger,
) Service {
	return &service{
		candidates: candidates,
		ledger:     ledger,
		publisher:  publisher,
		logger:     logger,
	}
}

func (s *service) GetCandidate(ctx context.Context, candidateID string) (*models.Candidate, error) {
	return s.candidates.GetByID(ctx, candidateID)
}

// Decide records an authorization decision and announces it on the
// broker. Approvals carry the profile fields the assignment service
// needs to resolve a test without a follow-up lookup.
func (s *service) Decide(ctx context.Context, candidateID, status, decidedBy string, examDate *time.Time) (*models.Candidate, error) {
	if candidateID == "" || decidedBy == "" {
		return nil, fmt.Errorf("%w: candidate id and decider are required", ErrInvalidDecision)
	}
	if status != models.StatusApproved && status != models.StatusRejected {
		return nil, fmt.Errorf("%w: status must be either %q or %q", ErrInvalidDecision, models.StatusApproved, models.StatusRejected)
	}

	candidate, err := s.candidates.GetByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		return nil, ErrCandidateNotFound
	}

	if err := s.candidates.UpdateStatus(ctx, candidateID, status, decidedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCandidateNotFound
		}
		return nil, err
	}

	candidate.AuthorizationStatus = status
	candidate.AuthorizedBy = &decidedBy

	if err := s.publishDecision(ctx, candidate, status, decidedBy, examDate); err != nil {
		// The status is already persisted; the publish failure is
		// surfaced so the caller can retry the decision.
		return nil, fmt.Errorf("decision saved but event publish failed: %w", err)
	}

	s.logger.Info().
		Str("candidate_id", candidateID).
		Str("status", status).
		Str("decided_by", decidedBy).
		Msg("Candidate decision recorded")

	return candidate, nil
}

func (s *service) publishDecision(ctx context.Context, candidate *models.Candidate, status, decidedBy string, examDate *time.Time) error {
	var (
		env models.Envelope
		err error
	)

	if status == models.StatusApproved {
		env, err = models.NewEvent(broker.EventCandidateApproved, models.CandidateApprovedEvent{
			CandidateID:    candidate.ID,
			Email:          candidate.Email,
			FirstName:      candidate.FirstName,
			LastName:       candidate.LastName,
			EducationLevel: candidate.EducationLevel,
			JobPosition:    candidate.JobPosition,
			DecidedBy:      decidedBy,
			ExamDate:       examDate,
		})
	} else {
		env, err = models.NewEvent(broker.EventCandidateRejected, models.CandidateRejectedEvent{
			CandidateID: candidate.ID,
			DecidedBy:   decidedBy,
			Status:      models.StatusRejected,
		})
	}

	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, env)
}

// HandleAssignmentCompleted writes the assignment back onto the
// candidate profile. The ledger key makes redeliveries of the same
// completion a no-op.
func (s *service) HandleAssignmentCompleted(ctx context.Context, event models.AssignmentCompletedEvent) error {
	if event.CandidateID == "" {
		s.logger.Warn().Msg("Assignment completion event without candidate id, discarding")
		return nil
	}

	key := completionKey(event)

	done, err := s.ledger.Processed(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to check event ledger: %w", err)
	}
	if done {
		s.logger.Info().Str("candidate_id", event.CandidateID).Msg("Assignment completion already applied, skipping")
		return nil
	}

	err = s.candidates.ApplyAssignment(ctx, event.CandidateID, event.AssignedTestIDs, event.AssignedBy, event.ExamDate, event.StatusUpdate)
	if errors.Is(err, sql.ErrNoRows) {
		// The candidate no longer exists; redelivering will not help.
		s.logger.Warn().Str("candidate_id", event.CandidateID).Msg("Assignment completion for unknown candidate, discarding")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to apply assignment to candidate %s: %w", event.CandidateID, err)
	}

	if _, err := s.ledger.MarkProcessed(ctx, key); err != nil {
		return fmt.Errorf("failed to record event in ledger: %w", err)
	}

	s.logger.Info().
		Str("candidate_id", event.CandidateID).
		Strs("test_ids", event.AssignedTestIDs).
		Msg("Candidate profile updated with assignment")

	return nil
}

// HandleCandidateRejected mirrors a rejection decision onto the profile
// for consumers that only follow the user service.
func (s *service) HandleCandidateRejected(ctx context.Context, event models.CandidateRejectedEvent) error {
	if event.CandidateID == "" {
		s.logger.Warn().Msg("Rejection event without candidate id, discarding")
		return nil
	}

	key := rejectionKey(event)

	done, err := s.ledger.Processed(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to check event ledger: %w", err)
	}
	if done {
		s.logger.Info().Str("candidate_id", event.CandidateID).Msg("Rejection already applied, skipping")
		return nil
	}

	err = s.candidates.UpdateStatus(ctx, event.CandidateID, models.StatusRejected, event.DecidedBy)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn().Str("candidate_id", event.CandidateID).Msg("Rejection for unknown candidate, discarding")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to reject candidate %s: %w", event.CandidateID, err)
	}

	if _, err := s.ledger.MarkProcessed(ctx, key); err != nil {
		return fmt.Errorf("failed to record event in ledger: %w", err)
	}

	s.logger.Info().
		Str("candidate_id", event.CandidateID).
		Str("decided_by", event.DecidedBy).
		Msg("Candidate marked rejected")

	return nil
}

func completionKey(event models.AssignmentCompletedEvent) string {
	ids := append([]string(nil), event.AssignedTestIDs...)
	sort.Strings(ids)
	return broker.EventAssignmentCompleted + ":" + event.CandidateID + ":" + strings.Join(ids, ",")
}

func rejectionKey(event models.CandidateRejectedEvent) string {
	return broker.EventCandidateRejected + ":" + event.CandidateID + ":" + event.DecidedBy
}
