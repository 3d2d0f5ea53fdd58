package models

import "time"

// Per-candidate outcomes of a bulk operation.
const (
	OutcomeAssigned = "assigned"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

// Terminal failure reasons of the orchestrator state machine.
const (
	ReasonNotApproved        = "NotApproved"
	ReasonCatalogUnavailable = "CatalogUnavailable"
	ReasonPersistenceError   = "PersistenceError"
	ReasonInvalidInput       = "InvalidInput"
)

type ManualAssignmentRequest struct {
	AssignedTestID    string     `json:"assigned_test_id"`
	AdditionalTestIDs []string   `json:"additional_test_ids,omitempty"`
	ExamDate          *time.Time `json:"exam_date,omitempty"`
	AssignedBy        string     `json:"assigned_by"`
}

type BulkUpdateRequest struct {
	CandidateIDs []string   `json:"candidate_ids"`
	Status       string     `json:"status"`
	ExamDate     *time.Time `json:"exam_date,omitempty"`
	RequestedBy  string     `json:"requested_by"`
}

type CandidateOutcome struct {
	CandidateID string `json:"candidate_id"`
	Outcome     string `json:"outcome"`
	Reason      string `json:"reason,omitempty"`
}

type BulkOperationResult struct {
	SuccessCount int                `json:"success_count"`
	FailureCount int                `json:"failure_count"`
	PerCandidate []CandidateOutcome `json:"per_candidate"`
}

type DecisionRequest struct {
	Status   string     `json:"status"`
	ExamDate *time.Time `json:"exam_date,omitempty"`
}

// Health surface shared by all services.
const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
	HealthError    = "error"
)

type HealthStatus struct {
	Status       string            `json:"status"`
	Service      string            `json:"service"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
}
