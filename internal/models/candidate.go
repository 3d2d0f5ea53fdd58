package models

import "time"

// Candidate statuses as stored by the user service.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

type Candidate struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	FirstName           string     `json:"first_name"`
	LastName            string     `json:"last_name"`
	EducationLevel      string     `json:"education_level"`
	JobPosition         string     `json:"job_position"`
	Company             string     `json:"company,omitempty"`
	AuthorizationStatus string     `json:"authorization_status"`
	AuthorizedBy        *string    `json:"authorized_by,omitempty"`
	AuthorizationDate   *time.Time `json:"authorization_date,omitempty"`
	AssignedTestIDs     []string   `json:"assigned_test_ids,omitempty"`
	AssignedBy          *string    `json:"assigned_by,omitempty"`
	ExamDate            *time.Time `json:"exam_date,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// CandidateDecision is an admin's verdict on a candidate. Immutable once
// it has been published as an event.
type CandidateDecision struct {
	CandidateID       string     `json:"candidate_id"`
	Decision          string     `json:"decision"` // approved | rejected
	DecidedBy         string     `json:"decided_by"`
	ExamDate          *time.Time `json:"exam_date,omitempty"`
	AssignedTestID    string     `json:"assigned_test_id,omitempty"`
	AdditionalTestIDs []string   `json:"additional_test_ids,omitempty"`
}

// AssignmentRecord is what the assignment service persists per candidate.
type AssignmentRecord struct {
	ID                 string     `json:"id"`
	CandidateID        string     `json:"candidate_id"`
	AssignedTestIDs    []string   `json:"assigned_test_ids"`
	AssignedBy         string     `json:"assigned_by"`
	IsManualAssignment bool       `json:"is_manual_assignment"`
	ExamDate           *time.Time `json:"exam_date,omitempty"`
	AssignedAt         time.Time  `json:"assigned_at"`
}
