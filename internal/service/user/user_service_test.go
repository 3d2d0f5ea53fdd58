package user

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeDjb10/recruitment-platform-backend/internal/broker"
	"github.com/MeDjb10/recruitment-platform-backend/internal/models"
)

type fakeCandidateRepo struct {
	mu         sync.Mutex
	candidates map[string]*models.Candidate
	applied    int
	updateErr  error
}

func newFakeCandidateRepo() *fakeCandidateRepo {
	return &fakeCandidateRepo{
		candidates: map[string]*models.Candidate{
			"c-1": {ID: "c-1", Email: "one@example.com", EducationLevel: "high_school", AuthorizationStatus: models.StatusPending},
		},
	}
}

func (f *fakeCandidateRepo) GetByID(ctx context.Context, id string) (*models.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.candidates[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeCandidateRepo) UpdateStatus(ctx context.Context, id, status, decidedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	c, ok := f.candidates[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.AuthorizationStatus = status
	c.AuthorizedBy = &decidedBy
	return nil
}

func (f *fakeCandidateRepo) ApplyAssignment(ctx context.Context, id string, testIDs []string, assignedBy string, examDate *time.Time, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.candidates[id]
	if !ok {
		return sql.ErrNoRows
	}
	f.applied++
	c.AssignedTestIDs = testIDs
	c.AssignedBy = &assignedBy
	c.ExamDate = examDate
	if status != "" {
		c.AuthorizationStatus = status
	}
	return nil
}

func (f *fakeCandidateRepo) Ping(ctx context.Context) error { return nil }

type fakeLedger struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{keys: make(map[string]bool)}
}

func (f *fakeLedger) Processed(ctx context.Context, eventKey string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keys[eventKey], nil
}

func (f *fakeLedger) MarkProcessed(ctx context.Context, eventKey string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[eventKey] {
		return false, nil
	}
	f.keys[eventKey] = true
	return true, nil
}

func (f *fakeLedger) Ping(ctx context.Context) error { return nil }

type capturePublisher struct {
	mu        sync.Mutex
	published []models.Envelope
	err       error
}

func (p *capturePublisher) Publish(ctx context.Context, env models.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, env)
	return nil
}

func newService() (Service, *fakeCandidateRepo, *fakeLedger, *capturePublisher) {
	repo := newFakeCandidateRepo()
	ledger := newFakeLedger()
	publisher := &capturePublisher{}
	return NewService(repo, ledger, publisher, zerolog.Nop()), repo, ledger, publisher
}

func TestDecideApproval(t *testing.T) {
	svc, repo, _, publisher := newService()

	candidate, err := svc.Decide(context.Background(), "c-1", models.StatusApproved, "admin-1", nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, candidate.AuthorizationStatus)

	stored := repo.candidates["c-1"]
	assert.Equal(t, models.StatusApproved, stored.AuthorizationStatus)

	require.Len(t, publisher.published, 1)
	assert.Equal(t, broker.EventCandidateApproved, publisher.published[0].EventName)
}

func TestDecideRejection(t *testing.T) {
	svc, _, _, publisher := newService()

	candidate, err := svc.Decide(context.Background(), "c-1", models.StatusRejected, "admin-1", nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, candidate.AuthorizationStatus)

	require.Len(t, publisher.published, 1)
	assert.Equal(t, broker.EventCandidateRejected, publisher.published[0].EventName)
}

func TestDecideValidation(t *testing.T) {
	svc, _, _, publisher := newService()

	_, err := svc.Decide(context.Background(), "c-1", "maybe", "admin-1", nil)
	assert.ErrorIs(t, err, ErrInvalidDecision)

	_, err = svc.Decide(context.Background(), "c-1", models.StatusApproved, "", nil)
	assert.ErrorIs(t, err, ErrInvalidDecision)

	_, err = svc.Decide(context.Background(), "c-missing", models.StatusApproved, "admin-1", nil)
	assert.ErrorIs(t, err, ErrCandidateNotFound)

	assert.Empty(t, publisher.published)
}

func TestDecidePublishFailureSurfaces(t *testing.T) {
	svc, _, _, publisher := newService()
	publisher.err = errors.New("broker unavailable")

	_, err := svc.Decide(context.Background(), "c-1", models.StatusApproved, "admin-1", nil)
	assert.Error(t, err)
}

func TestHandleAssignmentCompleted(t *testing.T) {
	svc, repo, _, _ := newService()

	event := models.AssignmentCompletedEvent{
		CandidateID:     "c-1",
		AssignedTestIDs: []string{"test-d70"},
		AssignedBy:      "admin-1",
		StatusUpdate:    models.StatusApproved,
	}
	require.NoError(t, svc.HandleAssignmentCompleted(context.Background(), event))

	stored := repo.candidates["c-1"]
	assert.Equal(t, []string{"test-d70"}, stored.AssignedTestIDs)
	assert.Equal(t, models.StatusApproved, stored.AuthorizationStatus)
}

func TestHandleAssignmentCompletedDoubleDeliveryAppliesOnce(t *testing.T) {
	svc, repo, _, _ := newService()

	event := models.AssignmentCompletedEvent{
		CandidateID:     "c-1",
		AssignedTestIDs: []string{"test-d70", "test-d2000"},
		AssignedBy:      "admin-1",
	}
	require.NoError(t, svc.HandleAssignmentCompleted(context.Background(), event))
	require.NoError(t, svc.HandleAssignmentCompleted(context.Background(), event))

	assert.Equal(t, 1, repo.applied)
}

func TestHandleAssignmentCompletedUnknownCandidateIsDiscarded(t *testing.T) {
	svc, _, ledger, _ := newService()

	event := models.AssignmentCompletedEvent{
		CandidateID:     "c-gone",
		AssignedTestIDs: []string{"test-d70"},
	}

	// Discarded rather than redelivered forever.
	assert.NoError(t, svc.HandleAssignmentCompleted(context.Background(), event))

	done, err := ledger.Processed(context.Background(), completionKey(event))
	require.NoError(t, err)
	assert.False(t, done)
}

func TestHandleAssignmentCompletedLedgerKeyIsOrderInsensitive(t *testing.T) {
	a := completionKey(models.AssignmentCompletedEvent{CandidateID: "c-1", AssignedTestIDs: []string{"x", "y"}})
	b := completionKey(models.AssignmentCompletedEvent{CandidateID: "c-1", AssignedTestIDs: []string{"y", "x"}})
	assert.Equal(t, a, b)
}

func TestHandleCandidateRejected(t *testing.T) {
	svc, repo, _, _ := newService()

	event := models.CandidateRejectedEvent{CandidateID: "c-1", DecidedBy: "admin-1"}
	require.NoError(t, svc.HandleCandidateRejected(context.Background(), event))

	assert.Equal(t, models.StatusRejected, repo.candidates["c-1"].AuthorizationStatus)
}

func TestHandleCandidateRejectedDoubleDelivery(t *testing.T) {
	svc, repo, _, _ := newService()
	event := models.CandidateRejectedEvent{CandidateID: "c-1", DecidedBy: "admin-1"}

	require.NoError(t, svc.HandleCandidateRejected(context.Background(), event))

	// A later manual re-approval must not be clobbered by a redelivery.
	repo.candidates["c-1"].AuthorizationStatus = models.StatusApproved
	require.NoError(t, svc.HandleCandidateRejected(context.Background(), event))

	assert.Equal(t, models.StatusApproved, repo.candidates["c-1"].AuthorizationStatus)
}

func TestHandleEventsWithoutCandidateIDAreDiscarded(t *testing.T) {
	svc, _, _, _ := newService()

	assert.NoError(t, svc.HandleAssignmentCompleted(context.Background(), models.AssignmentCompletedEvent{}))
	assert.NoError(t, svc.HandleCandidateRejected(context.Background(), models.CandidateRejectedEvent{}))
}

func TestHandleCandidateRejectedRepositoryErrorIsReturned(t *testing.T) {
	svc, repo, ledger, _ := newService()
	repo.updateErr = errors.New("connection refused")

	// The error propagates so the broker redelivers, and the ledger is
	// left untouched.
	err := svc.HandleCandidateRejected(context.Background(), models.CandidateRejectedEvent{CandidateID: "c-1", DecidedBy: "admin-1"})
	assert.Error(t, err)

	done, lerr := ledger.Processed(context.Background(), rejectionKey(models.CandidateRejectedEvent{CandidateID: "c-1", DecidedBy: "admin-1"}))
	require.NoError(t, lerr)
	assert.False(t, done)
}
